package api

// RawRequest is a descriptor assembled at runtime, used by the CLI for
// arbitrary calls. The result is the undecoded response body.
type RawRequest struct {
	Endpoint[[]byte]

	RequestPath   string
	RequestMethod Method
	Type          ContentType
	Query         Params
	Body          Params
	Header        Headers
	Parts         []MultipartPart
	Token         string
}

func (r RawRequest) Path() string { return r.RequestPath }

func (r RawRequest) Method() Method {
	if r.RequestMethod == "" {
		return MethodGet
	}
	return r.RequestMethod
}

func (r RawRequest) ContentType() ContentType {
	if r.Type == "" {
		return ContentTypeJSON
	}
	return r.Type
}

func (r RawRequest) QueryParams() Params             { return r.Query }
func (r RawRequest) BodyParams() Params              { return r.Body }
func (r RawRequest) Headers() Headers                { return r.Header }
func (r RawRequest) MultipartParts() []MultipartPart { return r.Parts }
func (r RawRequest) AuthToken() string               { return r.Token }
func (r RawRequest) Decoder() Decoder                { return RawDecoder{} }
