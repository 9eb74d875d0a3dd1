package operators

// Attribute types (AttributeProto.AttributeType).
const (
	AttrFloat = 1
	AttrInt   = 2
)

// Node represents a single operator invocation.
type Node struct {
	Name       string      // Node name (optional)
	OpType     string      // Operation type (e.g., "TSNE")
	Inputs     []string    // Input tensor names
	Outputs    []string    // Output tensor names
	Attributes []Attribute // Operation attributes
}

// Attribute represents a node attribute.
type Attribute struct {
	Name string  // Attribute name
	Type int32   // Attribute type
	F    float32 // FLOAT value
	I    int64   // INT value
}

// FloatAttr returns a FLOAT attribute.
func FloatAttr(name string, v float32) Attribute {
	return Attribute{Name: name, Type: AttrFloat, F: v}
}

// IntAttr returns an INT attribute.
func IntAttr(name string, v int64) Attribute {
	return Attribute{Name: name, Type: AttrInt, I: v}
}

// HasAttr reports whether the node carries the named attribute.
func HasAttr(node *Node, name string) bool {
	for i := range node.Attributes {
		if node.Attributes[i].Name == name {
			return true
		}
	}
	return false
}

// GetAttrInt returns an integer attribute or default value.
func GetAttrInt(node *Node, name string, defaultVal int64) int64 {
	for i := range node.Attributes {
		if node.Attributes[i].Name == name {
			return node.Attributes[i].I
		}
	}
	return defaultVal
}

// GetAttrFloat returns a float attribute or default value.
func GetAttrFloat(node *Node, name string, defaultVal float32) float32 {
	for i := range node.Attributes {
		if node.Attributes[i].Name == name {
			return node.Attributes[i].F
		}
	}
	return defaultVal
}
