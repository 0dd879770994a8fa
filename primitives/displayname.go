package primitives

// DisplayNameEntry is one row of the display-name corpus: a chain identity
// paired with the display name it registered. The corpus is queried by the
// external similarity policy, which reports back violations (other entries
// whose display name is confusingly close to a candidate's).
type DisplayNameEntry struct {
	Context     IdentityContext `json:"context"`
	DisplayName string          `json:"display_name"`
}
