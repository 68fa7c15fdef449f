package finalize

import (
	"encoding/json"
	"fmt"

	"submission-composer/core/queue"

	"github.com/go-playground/validator/v10"
)

// Result message attribute names.
const (
	AttrPackageID        = "PackageID"
	AttrBatchID          = "BatchID"
	AttrSubmissionSource = "SubmissionSource"
)

// Result types reported by the submission service.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// Attributes identify the item a result message is about.
type Attributes struct {
	PackageID        string `validate:"required"`
	BatchID          string `validate:"required"`
	SubmissionSource string
}

// Body is the JSON payload of a result message.
type Body struct {
	ResultType         string          `json:"ResultType" validate:"required,oneof=success error"`
	ItemHandle         string          `json:"ItemHandle" validate:"required_if=ResultType success"`
	LastModified       string          `json:"lastModified" validate:"required_if=ResultType success"`
	Bitstreams         json.RawMessage `json:"Bitstreams,omitempty"`
	ErrorTimestamp     string          `json:"ErrorTimestamp,omitempty"`
	ErrorInfo          string          `json:"ErrorInfo" validate:"required_if=ResultType error"`
	DSpaceResponse     string          `json:"DSpaceResponse,omitempty"`
	ExceptionTraceback []string        `json:"ExceptionTraceback,omitempty"`
}

// Result is a parsed and validated result message.
type Result struct {
	MessageID  string
	Attributes Attributes
	Body       Body
	Raw        string
}

// Succeeded reports whether the item was ingested.
func (r *Result) Succeeded() bool {
	return r.Body.ResultType == ResultSuccess
}

// Parser decodes and validates result messages.
type Parser struct {
	validate *validator.Validate
}

// NewParser creates a result message parser.
func NewParser() *Parser {
	return &Parser{validate: validator.New()}
}

// Parse decodes msg. Any ResultType other than success or error fails validation.
func (p *Parser) Parse(msg queue.Message) (*Result, error) {
	res := &Result{
		MessageID: msg.ID,
		Attributes: Attributes{
			PackageID:        msg.Attributes[AttrPackageID],
			BatchID:          msg.Attributes[AttrBatchID],
			SubmissionSource: msg.Attributes[AttrSubmissionSource],
		},
		Raw: msg.Body,
	}
	if err := p.validate.Struct(res.Attributes); err != nil {
		return nil, fmt.Errorf("invalid message attributes: %w", err)
	}
	if err := json.Unmarshal([]byte(msg.Body), &res.Body); err != nil {
		return nil, fmt.Errorf("failed to decode message body: %w", err)
	}
	if err := p.validate.Struct(res.Body); err != nil {
		return nil, fmt.Errorf("invalid message body: %w", err)
	}
	return res, nil
}
