package proto

type (
	// SchemaID is a custom type for graph schema ID
	SchemaID = uint32
	// FieldID is a custom type for a hashed field key inside a cell
	FieldID = uint64
	// Key is a custom type for key
	Key = []byte
	// Value is a custom type for value
	Value = []byte
)
