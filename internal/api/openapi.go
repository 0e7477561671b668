package api

import (
	"net/http"
	"strings"

	"github.com/JaimeStill/upload-lab/pkg/openapi"
	"github.com/JaimeStill/upload-lab/pkg/routes"
)

type spec struct {
	Process *openapi.Operation
	Cancel  *openapi.Operation
	Pin     *openapi.Operation
	Status  *openapi.Operation
	Result  *openapi.Operation
}

var uploadIDParam = openapi.PathParam("uploadId", "Upload ID")

// Spec documents the processing and query endpoints.
var Spec = spec{
	Process: &openapi.Operation{
		Summary:     "Start processing",
		Description: "Starts processing a completed upload. Repeating the call while a job runs, or after it completed, does not start another job.",
		Parameters:  []*openapi.Parameter{uploadIDParam},
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Processing accepted", "ProcessResponse"),
			404: openapi.ResponseRef("NotFound"),
			409: openapi.ResponseRef("Conflict"),
			503: openapi.ResponseRef("ServiceUnavailable"),
		},
	},
	Cancel: &openapi.Operation{
		Summary:     "Cancel processing",
		Description: "Stops the active job. The upload's status becomes failed.",
		Parameters:  []*openapi.Parameter{uploadIDParam},
		Responses: map[int]*openapi.Response{
			204: {Description: "Job cancelled"},
			404: openapi.ResponseRef("NotFound"),
		},
	},
	Pin: &openapi.Operation{
		Summary:     "Pin upload",
		Description: "Stores a completed upload under its content identifier (CIDv1, raw, sha2-256).",
		Parameters:  []*openapi.Parameter{uploadIDParam},
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Pinned content", "PinResult"),
			404: openapi.ResponseRef("NotFound"),
			409: openapi.ResponseRef("Conflict"),
		},
	},
	Status: &openapi.Operation{
		Summary:     "Get processing status",
		Description: "Returns the latest status. Unknown uploads return 404.",
		Parameters:  []*openapi.Parameter{uploadIDParam},
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Processing status", "Status"),
			404: openapi.ResponseRef("NotFound"),
		},
	},
	Result: &openapi.Operation{
		Summary:     "Get processing result",
		Description: "Returns the result once processing has completed; 404 before that.",
		Parameters:  []*openapi.Parameter{uploadIDParam},
		Responses: map[int]*openapi.Response{
			200: openapi.ResponseJSON("Processing result", "Result"),
			404: openapi.ResponseRef("NotFound"),
		},
	},
}

var stages = []string{"uploaded", "processing", "completed", "failed"}

// Schemas returns the component schemas referenced by Spec.
func (spec) Schemas() map[string]*openapi.Schema {
	return map[string]*openapi.Schema{
		"ProcessResponse": {
			Type: "object",
			Properties: map[string]*openapi.Property{
				"ok":        {Type: "boolean"},
				"upload_id": {Type: "string"},
			},
		},
		"PinResult": {
			Type: "object",
			Properties: map[string]*openapi.Property{
				"upload_id": {Type: "string"},
				"cid":       {Type: "string", Example: "bafkreihdwdcefgh4dqkjv67uzcmw7ojee6xedzdetojuzjevtenxquvyku"},
				"bytes":     {Type: "integer", Format: "int64"},
			},
		},
		"Status": {
			Type: "object",
			Properties: map[string]*openapi.Property{
				"upload_id":  {Type: "string"},
				"stage":      {Type: "string", Enum: stages},
				"sub_stage":  {Type: "string", Example: "ocr"},
				"progress":   {Type: "integer", Description: "0 to 100"},
				"message":    {Type: "string"},
				"error":      {Type: "string"},
				"updated_at": {Type: "string", Format: "date-time"},
			},
			Required: []string{"upload_id", "stage", "progress"},
		},
		"Result": {
			Type: "object",
			Properties: map[string]*openapi.Property{
				"upload_id":            {Type: "string"},
				"filename":             {Type: "string"},
				"size":                 {Type: "integer", Format: "int64"},
				"file_type":            {Type: "string", Example: "application/pdf"},
				"cid":                  {Type: "string"},
				"page_count":           {Type: "integer"},
				"supported_operations": {Type: "array", Items: &openapi.Schema{Type: "string"}},
				"preview_chunks":       {Type: "array", Items: &openapi.Schema{Type: "string"}},
			},
		},
	}
}

// buildSpec collects the operations attached to every registered route.
func buildSpec(cfg *openapi.Config, rs routes.System) ([]byte, error) {
	components := openapi.NewComponents()
	components.AddSchemas(Spec.Schemas())

	doc := openapi.New(cfg, components)

	for _, group := range rs.Groups() {
		addGroup(doc, "", nil, group)
	}
	for _, route := range rs.Routes() {
		if route.OpenAPI != nil {
			doc.AddOperation(strings.TrimSuffix(route.Pattern, "{$}"), route.Method, route.OpenAPI)
		}
	}

	return openapi.MarshalJSON(doc)
}

func addGroup(doc *openapi.Spec, prefix string, tags []string, group routes.Group) {
	prefix += group.Prefix
	if len(group.Tags) > 0 {
		tags = group.Tags
	}

	for _, route := range group.Routes {
		if route.OpenAPI == nil {
			continue
		}
		op := *route.OpenAPI
		if len(op.Tags) == 0 {
			op.Tags = tags
		}
		doc.AddOperation(prefix+route.Pattern, route.Method, &op)
	}

	for _, child := range group.Children {
		addGroup(doc, prefix, tags, child)
	}
}

func serveSpec(spec []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(spec)
	}
}
