package transfer

import "github.com/JaimeStill/upload-lab/pkg/openapi"

type spec struct {
	Options *openapi.Operation
	Create  *openapi.Operation
	Head    *openapi.Operation
	Patch   *openapi.Operation
	Delete  *openapi.Operation
}

var tusResumable = openapi.HeaderParam(HeaderTusResumable, "string", "Protocol version, must be "+TusVersion, true)

var uploadID = openapi.PathParam("id", "Upload ID")

// Spec documents the tus endpoint.
var Spec = spec{
	Options: &openapi.Operation{
		Summary:     "Discover server capabilities",
		Description: "Reports the supported tus version, extensions and maximum upload size.",
		Responses: map[int]*openapi.Response{
			204: {
				Description: "Capabilities",
				Headers: map[string]*openapi.Header{
					HeaderTusVersion:   openapi.ResponseHeader("string", "Supported versions"),
					HeaderTusExtension: openapi.ResponseHeader("string", "Supported extensions"),
					HeaderTusMaxSize:   openapi.ResponseHeader("integer", "Maximum upload size in bytes"),
				},
			},
		},
	},
	Create: &openapi.Operation{
		Summary:     "Create upload",
		Description: "Reserves an upload of Upload-Length bytes. Zero-length uploads complete immediately.",
		Parameters: []*openapi.Parameter{
			tusResumable,
			openapi.HeaderParam(HeaderUploadLength, "integer", "Total size in bytes", true),
			openapi.HeaderParam(HeaderUploadMetadata, "string", "Comma-separated key and base64 value pairs", false),
			openapi.HeaderParam(HeaderFileName, "string", "Original file name", false),
		},
		Responses: map[int]*openapi.Response{
			201: {
				Description: "Upload created",
				Headers: map[string]*openapi.Header{
					"Location":         openapi.ResponseHeader("string", "Upload URL"),
					HeaderUploadOffset: openapi.ResponseHeader("integer", "Current offset"),
				},
			},
			400: openapi.ResponseRef("BadRequest"),
			412: {Description: "Missing or unsupported Tus-Resumable"},
			413: {Description: "Upload exceeds the maximum size"},
		},
	},
	Head: &openapi.Operation{
		Summary:     "Get upload offset",
		Description: "Returns the number of bytes received so the client can resume.",
		Parameters:  []*openapi.Parameter{uploadID, tusResumable},
		Responses: map[int]*openapi.Response{
			200: {
				Description: "Upload state",
				Headers: map[string]*openapi.Header{
					HeaderUploadOffset: openapi.ResponseHeader("integer", "Bytes received"),
					HeaderUploadLength: openapi.ResponseHeader("integer", "Total size in bytes"),
				},
			},
			404: {Description: "Upload not found"},
		},
	},
	Patch: &openapi.Operation{
		Summary:     "Append bytes",
		Description: "Appends the body at Upload-Offset, which must equal the current offset.",
		Parameters: []*openapi.Parameter{
			uploadID,
			tusResumable,
			openapi.HeaderParam(HeaderUploadOffset, "integer", "Offset of the first byte in the body", true),
		},
		RequestBody: &openapi.RequestBody{
			Required: true,
			Content: map[string]*openapi.MediaType{
				OffsetContent: {Schema: &openapi.Schema{Type: "string", Format: "binary"}},
			},
		},
		Responses: map[int]*openapi.Response{
			204: {
				Description: "Bytes stored",
				Headers: map[string]*openapi.Header{
					HeaderUploadOffset: openapi.ResponseHeader("integer", "New offset"),
				},
			},
			404: openapi.ResponseRef("NotFound"),
			409: openapi.ResponseRef("Conflict"),
			413: {Description: "Body exceeds the declared length"},
			415: {Description: "Content-Type is not " + OffsetContent},
		},
	},
	Delete: &openapi.Operation{
		Summary:     "Terminate upload",
		Description: "Removes the upload and its stored bytes.",
		Parameters:  []*openapi.Parameter{uploadID, tusResumable},
		Responses: map[int]*openapi.Response{
			204: {Description: "Upload removed"},
			404: openapi.ResponseRef("NotFound"),
		},
	},
}
