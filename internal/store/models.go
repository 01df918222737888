package store

// Kind names one of the three record tables. The value doubles as the URL segment.
type Kind string

const (
	KindDocuments  Kind = "documents"
	KindNotes      Kind = "notes"
	KindWorkspaces Kind = "workspaces"
)

// Kinds lists every record kind in dashboard order.
var Kinds = []Kind{KindDocuments, KindNotes, KindWorkspaces}

var kindTables = map[Kind]string{
	KindDocuments:  "test_documents",
	KindNotes:      "notes",
	KindWorkspaces: "workspaces",
}

func ParseKind(value string) (Kind, bool) {
	kind := Kind(value)
	_, ok := kindTables[kind]
	return kind, ok
}

func (k Kind) Table() string {
	return kindTables[k]
}

type Record struct {
	ID      string
	Kind    Kind
	Title   string
	Content string
	UserID  string
}
