package model

// MaxBatchSize is the largest number of writes committed together.
const MaxBatchSize = 500

// BatchOperationType defines the type of batch operation
type BatchOperationType string

const (
	BatchOperationTypeSet    BatchOperationType = "set"
	BatchOperationTypeUpdate BatchOperationType = "update"
	BatchOperationTypeDelete BatchOperationType = "delete"
)

// BatchOperation is one write in a batch. Doc is used by set, Fields by update.
type BatchOperation[T any] struct {
	Type   BatchOperationType
	ID     string
	Doc    *T
	Fields map[string]interface{}
}

// SetOp builds an upsert of the whole document.
func SetOp[T any](id string, doc *T) BatchOperation[T] {
	return BatchOperation[T]{Type: BatchOperationTypeSet, ID: id, Doc: doc}
}

// UpdateOp builds a partial update. DeleteField values remove the field.
func UpdateOp[T any](id string, fields map[string]interface{}) BatchOperation[T] {
	return BatchOperation[T]{Type: BatchOperationTypeUpdate, ID: id, Fields: fields}
}

// DeleteOp builds a delete.
func DeleteOp[T any](id string) BatchOperation[T] {
	return BatchOperation[T]{Type: BatchOperationTypeDelete, ID: id}
}

type deleteField struct{}

// DeleteField is the update value that removes a field from a document.
var DeleteField interface{} = deleteField{}

// IsDeleteField reports whether v is the DeleteField sentinel.
func IsDeleteField(v interface{}) bool {
	_, ok := v.(deleteField)
	return ok
}
