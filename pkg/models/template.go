package models

// TemplateRecord describes one workflow template file in the content tree.
// Category is the first path element under the content root.
type TemplateRecord struct {
	AbsolutePath  string `json:"absolute_path"`
	RelativePath  string `json:"relative_path"`
	Title         string `json:"title"`
	Category      string `json:"category"`
	NodesCount    *int   `json:"nodes_count"`
	FileSizeBytes int64  `json:"file_size_bytes"`
	ModifiedISO   string `json:"modified_iso"`
}

// SearchHit is a record that matched a search, with the keywords that hit.
type SearchHit struct {
	TemplateRecord
	Matched []string `json:"matched"`
}

type CategoryCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}
