package domain

// PersonKind tags whom a statement settles with.
type PersonKind string

const (
	PersonDriver PersonKind = "DRIVER"
	PersonOwner  PersonKind = "OWNER"
)

// IsValid reports whether k is a known person kind.
func (k PersonKind) IsValid() bool {
	return k == PersonDriver || k == PersonOwner
}
