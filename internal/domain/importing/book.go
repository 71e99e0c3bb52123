package importing

// BookMetadata is what the external lookup service knows about one ISBN.
type BookMetadata struct {
	ISBN          string
	Title         string
	Subtitle      string
	Authors       []string
	Publisher     string
	PublishedDate string
	CoverURL      string
	PageCount     int
	Subjects      []string
}
