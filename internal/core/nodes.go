package core

import "github.com/awcullen/opcua/ua"

// NamespaceCell is the OPC UA namespace index of the sorting cell
const NamespaceCell uint16 = 2

// NodeDefinition describes an OPC UA node exposed by the cell
type NodeDefinition struct {
	Name         string      // Node name (e.g., "CurrentStage")
	DisplayName  string      // Human-readable name
	Description  string      // Description of the node
	DataType     DataType    // Data type (Double, Int32, String, Bool)
	Unit         string      // Engineering unit (rad, m/s, s)
	InitialValue interface{} // Initial/default value
}

// DataType represents OPC UA data types
type DataType int

const (
	DataTypeDouble DataType = iota
	DataTypeInt32
	DataTypeString
	DataTypeBool
)

func (dt DataType) String() string {
	switch dt {
	case DataTypeDouble:
		return "Double"
	case DataTypeInt32:
		return "Int32"
	case DataTypeString:
		return "String"
	case DataTypeBool:
		return "Boolean"
	default:
		return "Unknown"
	}
}

// OPCUADataType maps a DataType to its OPC UA data type node id
func OPCUADataType(dt DataType) ua.NodeID {
	switch dt {
	case DataTypeInt32:
		return ua.DataTypeIDInt32
	case DataTypeString:
		return ua.DataTypeIDString
	case DataTypeBool:
		return ua.DataTypeIDBoolean
	default:
		return ua.DataTypeIDDouble
	}
}
