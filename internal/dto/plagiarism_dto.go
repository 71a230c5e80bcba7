package dto

// PlagiarismCheckRequest lists the documents to compare. Threshold is a percentage; nil means the
// configured default.
type PlagiarismCheckRequest struct {
	FileURLs        []string `json:"file_urls" validate:"required,min=1,dive,required,max=2048"`
	Threshold       *float64 `json:"threshold" validate:"omitempty,gte=0,lte=100"`
	IncludeAllPairs bool     `json:"include_all_pairs"`
}

// PlagiarismPair is the verdict for one document pair, indexed by input position.
type PlagiarismPair struct {
	File1Index      int     `json:"file1_index"`
	File2Index      int     `json:"file2_index"`
	SimilarityScore float64 `json:"similarity_score"`
	IsPlagiarised   bool    `json:"is_plagiarised"`
}

// SkippedDocument reports an input excluded from the comparison set.
type SkippedDocument struct {
	Index  int    `json:"index"`
	Source string `json:"source"`
	Reason string `json:"reason"`
}

// PlagiarismCheckResponse carries the verdicts and any excluded documents.
type PlagiarismCheckResponse struct {
	Threshold float64           `json:"threshold"`
	Results   []PlagiarismPair  `json:"results"`
	Skipped   []SkippedDocument `json:"skipped"`
}
