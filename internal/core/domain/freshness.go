package domain

// ChangeKind classifies the result of a freshness check.
type ChangeKind string

const (
	// ChangeUnchanged means the upstream record matches the stored baseline.
	ChangeUnchanged ChangeKind = "unchanged"
	// ChangeUpdated means one or more tracked fields differ from the baseline.
	ChangeUpdated ChangeKind = "updated"
	// ChangeRemoved means the registry no longer has the record.
	ChangeRemoved ChangeKind = "removed"
)

// FieldChange is a single differing field.
type FieldChange struct {
	Field string `json:"field"`
	Old   string `json:"old"`
	New   string `json:"new"`
}

// ChangeStatus is the result of comparing a device against its baseline.
type ChangeStatus struct {
	ID   string        `json:"id"`
	Kind ChangeKind    `json:"kind"`
	Diff []FieldChange `json:"diff,omitempty"`
}
