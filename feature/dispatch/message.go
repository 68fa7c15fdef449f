package dispatch

import (
	"encoding/json"
	"path"

	"submission-composer/core/storage"
)

// Submission message attribute names.
const (
	AttrPackageID        = "PackageID"
	AttrBatchID          = "BatchID"
	AttrSubmissionSource = "SubmissionSource"
	AttrOutputQueue      = "OutputQueue"
)

// File references one bitstream of a submission.
type File struct {
	BitstreamName        string  `json:"BitstreamName"`
	FileLocation         string  `json:"FileLocation"`
	BitstreamDescription *string `json:"BitstreamDescription"`
}

// Body is the JSON payload of a submission message.
type Body struct {
	SubmissionSystem string `json:"SubmissionSystem"`
	CollectionHandle string `json:"CollectionHandle"`
	MetadataLocation string `json:"MetadataLocation"`
	Files            []File `json:"Files"`
}

// Submission is a message ready to send.
type Submission struct {
	Attributes map[string]string
	Body       Body
}

// Encode returns the JSON body.
func (s *Submission) Encode() ([]byte, error) {
	return json.Marshal(s.Body)
}

// MessageParams are the inputs of NewSubmission.
type MessageParams struct {
	Bucket           string
	BatchID          string
	ItemIdentifier   string
	Workflow         string
	OutputQueue      string
	SubmissionSystem string
	CollectionHandle string
	MetadataKey      string
	BitstreamKeys    []string
}

// NewSubmission builds the submission message of one item.
func NewSubmission(p MessageParams) *Submission {
	files := make([]File, 0, len(p.BitstreamKeys))
	for _, key := range p.BitstreamKeys {
		files = append(files, File{
			BitstreamName: path.Base(key),
			FileLocation:  storage.URI(p.Bucket, key),
		})
	}
	return &Submission{
		Attributes: map[string]string{
			AttrPackageID:        p.ItemIdentifier,
			AttrBatchID:          p.BatchID,
			AttrSubmissionSource: p.Workflow,
			AttrOutputQueue:      p.OutputQueue,
		},
		Body: Body{
			SubmissionSystem: p.SubmissionSystem,
			CollectionHandle: p.CollectionHandle,
			MetadataLocation: storage.URI(p.Bucket, p.MetadataKey),
			Files:            files,
		},
	}
}
