// ABOUTME: EntityKind enumerates the three relational entity kinds
// ABOUTME: Maps each kind to its table without a runtime type registry
package models

// EntityKind identifies one of the relational tables
type EntityKind int

const (
	KindItem EntityKind = iota
	KindSchedule
	KindRecurrence
)

// EntityKinds lists every kind in schema order
var EntityKinds = []EntityKind{KindRecurrence, KindItem, KindSchedule}

// TableName returns the table backing the kind
func (k EntityKind) TableName() string {
	switch k {
	case KindItem:
		return "item"
	case KindSchedule:
		return "schedule"
	case KindRecurrence:
		return "recurrence"
	}
	return ""
}

func (k EntityKind) String() string {
	if name := k.TableName(); name != "" {
		return name
	}
	return "unknown"
}
