package opcua

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/awcullen/opcua/server"
	"github.com/awcullen/opcua/ua"
	"github.com/rs/zerolog/log"

	"github.com/sebastiankruger/fruitsort-simulator/internal/core"
)

const defaultPKIDir = "./pki"

// NamespaceNodes holds nodes for a specific namespace
type NamespaceNodes struct {
	Namespace  uint16
	FolderName string
	FolderDesc string
	NodeDefs   []core.NodeDefinition // kept for deferred registration
	VarNodes   map[string]*server.VariableNode
	Values     map[string]interface{}
}

// Server wraps the OPC UA server and manages node values per namespace
type Server struct {
	srv     *server.Server
	port    int
	appName string
	pkiDir  string
	mu      sync.RWMutex
	running atomic.Bool

	namespaces map[uint16]*NamespaceNodes
}

// NewServer creates a new OPC UA server
func NewServer(port int, appName string) *Server {
	return &Server{
		port:       port,
		appName:    appName,
		pkiDir:     defaultPKIDir,
		namespaces: make(map[uint16]*NamespaceNodes),
	}
}

// SetPKIDir overrides where certificates are read and generated
func (s *Server) SetPKIDir(dir string) {
	s.pkiDir = dir
}

func (s *Server) certFile() string { return filepath.Join(s.pkiDir, "server.crt") }
func (s *Server) keyFile() string  { return filepath.Join(s.pkiDir, "server.key") }

// ensurePKI creates the PKI directory and a self-signed certificate if missing
func (s *Server) ensurePKI() error {
	if _, err := os.Stat(s.certFile()); err == nil {
		log.Info().Str("certFile", s.certFile()).Msg("Using existing PKI certificates")
		return nil
	}

	log.Info().Msg("Generating self-signed certificates for OPC UA server")

	if err := os.MkdirAll(s.pkiDir, 0755); err != nil {
		return fmt.Errorf("failed to create PKI directory: %w", err)
	}

	return createSelfSignedCert(s.appName, s.certFile(), s.keyFile())
}

// createSelfSignedCert generates a self-signed certificate for the server
func createSelfSignedCert(appName, certPath, keyPath string) error {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return fmt.Errorf("failed to generate private key: %w", err)
	}

	serialNumber, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return fmt.Errorf("failed to generate serial number: %w", err)
	}

	template := x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			CommonName:   appName,
			Organization: []string{"Fruit Sorting Simulator"},
		},
		NotBefore:             time.Now(),
		NotAfter:              time.Now().Add(365 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
		DNSNames:              []string{"localhost", appName, "fruitsort-simulator"},
		IPAddresses:           []net.IP{net.ParseIP("127.0.0.1"), net.ParseIP("0.0.0.0")},
		URIs: []*url.URL{
			{Scheme: "urn", Opaque: "fruitsort-simulator:cell"},
		},
	}

	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &privateKey.PublicKey, privateKey)
	if err != nil {
		return fmt.Errorf("failed to create certificate: %w", err)
	}

	certOut, err := os.Create(certPath)
	if err != nil {
		return fmt.Errorf("failed to create cert file: %w", err)
	}
	defer certOut.Close()

	if err := pem.Encode(certOut, &pem.Block{Type: "CERTIFICATE", Bytes: certDER}); err != nil {
		return fmt.Errorf("failed to encode certificate: %w", err)
	}

	keyOut, err := os.Create(keyPath)
	if err != nil {
		return fmt.Errorf("failed to create key file: %w", err)
	}
	defer keyOut.Close()

	if err := pem.Encode(keyOut, &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(privateKey)}); err != nil {
		return fmt.Errorf("failed to encode private key: %w", err)
	}

	log.Info().
		Str("certPath", certPath).
		Str("keyPath", keyPath).
		Msg("Self-signed certificates generated successfully")

	return nil
}

// Start starts the OPC UA server. A server that cannot be created leaves
// the simulator running in value storage mode.
func (s *Server) Start(ctx context.Context) error {
	endpoint := fmt.Sprintf("opc.tcp://0.0.0.0:%d", s.port)

	log.Info().
		Int("port", s.port).
		Str("endpoint", endpoint).
		Msg("Starting OPC UA server")

	if err := s.ensurePKI(); err != nil {
		log.Warn().Err(err).Msg("Failed to create PKI - OPC UA server disabled")
		return nil
	}

	var srv *server.Server
	func() {
		defer func() {
			if r := recover(); r != nil {
				log.Warn().
					Interface("panic", r).
					Msg("OPC UA server creation panicked - running in value storage mode only")
			}
		}()

		var err error
		srv, err = server.New(
			ua.ApplicationDescription{
				ApplicationURI:  "urn:fruitsort-simulator:cell",
				ProductURI:      "urn:fruitsort-simulator",
				ApplicationName: ua.LocalizedText{Text: "Fruit Sorting Cell Simulator", Locale: "en"},
				ApplicationType: ua.ApplicationTypeServer,
			},
			s.certFile(),
			s.keyFile(),
			endpoint,
			server.WithAnonymousIdentity(true),
			server.WithSecurityPolicyNone(true),
			server.WithInsecureSkipVerify(),
		)
		if err != nil {
			log.Warn().
				Err(err).
				Msg("OPC UA server creation failed - running in value storage mode only")
			srv = nil
		}
	}()

	if srv == nil {
		return nil
	}

	s.mu.Lock()
	s.srv = srv
	count := 0
	for _, ns := range s.namespaces {
		count += s.addNodes(ns)
	}
	s.mu.Unlock()
	log.Info().Int("count", count).Msg("OPC UA nodes registered in address space")

	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Msg("OPC UA server panic")
			}
		}()
		s.running.Store(true)
		defer s.running.Store(false)
		if err := srv.ListenAndServe(); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("OPC UA server error")
		}
	}()

	log.Info().Msg("OPC UA server started successfully")
	return nil
}

// Running reports whether the server is listening
func (s *Server) Running() bool {
	return s.running.Load()
}

// Stop stops the OPC UA server
func (s *Server) Stop(ctx context.Context) error {
	s.mu.RLock()
	srv := s.srv
	s.mu.RUnlock()
	if srv != nil {
		return srv.Close()
	}
	return nil
}

// RegisterNamespace creates a folder and its variable nodes. Before Start
// the definitions are stored and added once the server exists.
func (s *Server) RegisterNamespace(nsIndex uint16, folderName, folderDesc string, nodes []core.NodeDefinition) error {
	if len(nodes) == 0 {
		return fmt.Errorf("namespace %d: no nodes to register", nsIndex)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.namespaces[nsIndex]; exists {
		return fmt.Errorf("namespace %d already registered", nsIndex)
	}

	ns := &NamespaceNodes{
		Namespace:  nsIndex,
		FolderName: folderName,
		FolderDesc: folderDesc,
		NodeDefs:   nodes,
		VarNodes:   make(map[string]*server.VariableNode),
		Values:     make(map[string]interface{}),
	}
	for _, def := range nodes {
		ns.Values[def.Name] = def.InitialValue
	}
	s.namespaces[nsIndex] = ns

	if s.srv != nil {
		s.addNodes(ns)
	}

	log.Info().
		Uint16("namespace", nsIndex).
		Str("folder", folderName).
		Int("nodes", len(nodes)).
		Msg("Registered OPC UA namespace")

	return nil
}

// addNodes adds the folder and variables of ns to the address space.
// Caller holds s.mu.
func (s *Server) addNodes(ns *NamespaceNodes) int {
	nm := s.srv.NamespaceManager()
	folderID := ua.NodeIDString{NamespaceIndex: ns.Namespace, ID: ns.FolderName}

	folder := server.NewObjectNode(
		s.srv,
		folderID,
		ua.QualifiedName{NamespaceIndex: ns.Namespace, Name: ns.FolderName},
		ua.LocalizedText{Text: ns.FolderName},
		ua.LocalizedText{Text: ns.FolderDesc},
		nil,
		[]ua.Reference{
			{
				ReferenceTypeID: ua.ReferenceTypeIDOrganizes,
				IsInverse:       true,
				TargetID:        ua.ExpandedNodeID{NodeID: ua.ObjectIDObjectsFolder},
			},
		},
		0,
	)
	nm.AddNode(folder)

	now := time.Now().UTC()
	for _, def := range ns.NodeDefs {
		varNode := server.NewVariableNode(
			s.srv,
			ua.NodeIDString{NamespaceIndex: ns.Namespace, ID: ns.FolderName + "." + def.Name},
			ua.QualifiedName{NamespaceIndex: ns.Namespace, Name: def.Name},
			ua.LocalizedText{Text: def.DisplayName},
			ua.LocalizedText{Text: def.Description},
			nil,
			[]ua.Reference{
				{
					ReferenceTypeID: ua.ReferenceTypeIDHasComponent,
					IsInverse:       true,
					TargetID:        ua.ExpandedNodeID{NodeID: folderID},
				},
			},
			ua.NewDataValue(ns.Values[def.Name], 0, now, 0, now, 0),
			core.OPCUADataType(def.DataType),
			ua.ValueRankScalar,
			[]uint32{},
			ua.AccessLevelsCurrentRead,
			250.0,
			false,
			nil,
		)
		nm.AddNode(varNode)
		ns.VarNodes[def.Name] = varNode
	}
	return len(ns.NodeDefs)
}

// UpdateNamespaceValues updates values for a namespace. Unknown names are
// ignored.
func (s *Server) UpdateNamespaceValues(nsIndex uint16, values map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ns, ok := s.namespaces[nsIndex]
	if !ok {
		return
	}

	now := time.Now().UTC()
	for name, value := range values {
		if _, known := ns.Values[name]; !known {
			continue
		}
		ns.Values[name] = value
		if varNode, ok := ns.VarNodes[name]; ok {
			varNode.SetValue(ua.NewDataValue(value, 0, now, 0, now, 0))
		}
	}
}

// GetNamespaceValue returns a value from a namespace
func (s *Server) GetNamespaceValue(nsIndex uint16, name string) (interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ns, ok := s.namespaces[nsIndex]
	if !ok {
		return nil, false
	}

	value, ok := ns.Values[name]
	return value, ok
}

// GetNamespaceValues returns a copy of all values in a namespace
func (s *Server) GetNamespaceValues(nsIndex uint16) map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ns, ok := s.namespaces[nsIndex]
	if !ok {
		return nil
	}
	out := make(map[string]interface{}, len(ns.Values))
	for k, v := range ns.Values {
		out[k] = v
	}
	return out
}
