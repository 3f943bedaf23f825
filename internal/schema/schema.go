// Package schema validates inbound payloads against embedded JSON
// schemas, compiled once at startup.
package schema

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	_ "embed"

	"github.com/qri-io/jsonschema"
)

//go:embed job_post.schema.json
var jobPostSchema []byte

// Validator holds the compiled schemas.
type Validator struct {
	jobPost *jsonschema.Schema
}

func NewValidator() (*Validator, error) {
	rs := &jsonschema.Schema{}
	if err := json.Unmarshal(jobPostSchema, rs); err != nil {
		return nil, fmt.Errorf("compile job post schema: %w", err)
	}

	return &Validator{jobPost: rs}, nil
}

// ValidateJobPost checks a raw job-post body against the schema. A
// non-empty returned string describes the validation failures.
func (v *Validator) ValidateJobPost(ctx context.Context, body []byte) (string, error) {
	keyErrs, err := v.jobPost.ValidateBytes(ctx, body)
	if err != nil {
		return "", fmt.Errorf("validate job post: %w", err)
	}
	if len(keyErrs) == 0 {
		return "", nil
	}

	msgs := make([]string, 0, len(keyErrs))
	for _, ke := range keyErrs {
		msgs = append(msgs, ke.Error())
	}
	return strings.Join(msgs, "; "), nil
}
