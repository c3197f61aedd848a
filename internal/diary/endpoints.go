package diary

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/anglerdiary/flownet/internal/api"
	"github.com/anglerdiary/flownet/internal/validation"
)

const (
	pathLogin   = "/v1/auth/login"
	pathMe      = "/v1/users/me"
	pathCatches = "/v1/catches"

	// DefaultCatchLimit is the page size used when ListCatches.Limit is zero.
	DefaultCatchLimit = 20
	MaxCatchLimit     = 100
)

// Login exchanges credentials for a bearer token. The body is sent
// URL-encoded.
type Login struct {
	api.Endpoint[Session]

	Email    string
	Password string
}

func (Login) Path() string                 { return pathLogin }
func (Login) Method() api.Method           { return api.MethodPost }
func (Login) ContentType() api.ContentType { return api.ContentTypeURLEncoded }

func (r Login) BodyParams() api.Params {
	return api.P("email", r.Email, "password", r.Password)
}

// Validate checks the credentials before sending.
func (r Login) Validate() error {
	if err := validation.ValidateEmailFormat(r.Email); err != nil {
		return err
	}
	if r.Password == "" {
		return errors.New("password is required")
	}
	return nil
}

// GetProfile fetches the signed-in user.
type GetProfile struct {
	api.Endpoint[User]

	Token string
}

func (GetProfile) Path() string        { return pathMe }
func (r GetProfile) AuthToken() string { return r.Token }

// ListCatches lists the signed-in user's catch records, newest first.
type ListCatches struct {
	api.Endpoint[[]CatchRecord]

	Token   string
	Species string
	Method  FishingMethod
	Since   time.Time
	Limit   int
}

func (ListCatches) Path() string        { return pathCatches }
func (r ListCatches) AuthToken() string { return r.Token }

func (r ListCatches) QueryParams() api.Params {
	var p api.Params
	if r.Species != "" {
		p = p.Add("species", r.Species)
	}
	if r.Method != "" {
		p = p.Add("method", string(r.Method))
	}
	if !r.Since.IsZero() {
		p = p.Add("since", r.Since.UTC().Format(time.RFC3339))
	}
	return p.Add("limit", r.limit())
}

func (r ListCatches) limit() int {
	switch {
	case r.Limit <= 0:
		return DefaultCatchLimit
	case r.Limit > MaxCatchLimit:
		return MaxCatchLimit
	default:
		return r.Limit
	}
}

// NewCatch is the payload of CreateCatch.
type NewCatch struct {
	Species  string
	Weight   float64
	Length   float64
	Location string
	Time     time.Time
	Method   FishingMethod
	Tags     []string
}

// CreateCatch logs a catch. The record is sent as a nested JSON object.
type CreateCatch struct {
	api.Endpoint[CatchRecord]

	Token string
	Catch NewCatch
}

func (CreateCatch) Path() string        { return pathCatches }
func (CreateCatch) Method() api.Method  { return api.MethodPost }
func (r CreateCatch) AuthToken() string { return r.Token }

func (r CreateCatch) BodyParams() api.Params {
	c := r.Catch
	record := api.P("fishSpecies", api.P("name", c.Species))
	if c.Weight > 0 {
		record = record.Add("weight", c.Weight)
	}
	if c.Length > 0 {
		record = record.Add("length", c.Length)
	}
	record = record.Add("location", c.Location)
	when := c.Time
	if when.IsZero() {
		when = time.Now()
	}
	record = record.Add("time", when.UTC().Format(time.RFC3339))
	record = record.Add("method", string(c.Method))
	if len(c.Tags) > 0 {
		record = record.Add("tags", c.Tags)
	}
	return api.P("catch", record)
}

// Validate checks required fields.
func (r CreateCatch) Validate() error {
	var missing []string
	if strings.TrimSpace(r.Catch.Species) == "" {
		missing = append(missing, "species")
	}
	if strings.TrimSpace(r.Catch.Location) == "" {
		missing = append(missing, "location")
	}
	if r.Catch.Method == "" {
		missing = append(missing, "method")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}
	if r.Catch.Weight < 0 || r.Catch.Length < 0 {
		return errors.New("weight and length must not be negative")
	}
	return nil
}

// UploadCatchPhoto attaches a photo to a catch as multipart/form-data.
type UploadCatchPhoto struct {
	api.Endpoint[Photo]

	Token    string
	CatchID  uuid.UUID
	FileName string
	MIMEType string
	Data     []byte
	Caption  string
}

func (r UploadCatchPhoto) Path() string               { return pathCatches + "/" + r.CatchID.String() + "/photo" }
func (UploadCatchPhoto) Method() api.Method           { return api.MethodPost }
func (UploadCatchPhoto) ContentType() api.ContentType { return api.ContentTypeMultipart }
func (r UploadCatchPhoto) AuthToken() string          { return r.Token }

func (r UploadCatchPhoto) BodyParams() api.Params {
	if r.Caption == "" {
		return nil
	}
	return api.P("caption", r.Caption)
}

func (r UploadCatchPhoto) MultipartParts() []api.MultipartPart {
	return []api.MultipartPart{{
		FieldName: "photo",
		FileName:  r.FileName,
		MIMEType:  r.MIMEType,
		Data:      r.Data,
	}}
}

// Validate checks the attachment.
func (r UploadCatchPhoto) Validate() error {
	if r.CatchID == uuid.Nil {
		return errors.New("catch id is required")
	}
	if len(r.Data) == 0 {
		return errors.New("photo is empty")
	}
	return validation.ValidateUploadSize(r.FileName, int64(len(r.Data)))
}

// DeleteCatch removes a catch record. The API answers 204 No Content.
type DeleteCatch struct {
	api.Endpoint[api.Empty]

	Token   string
	CatchID uuid.UUID
}

func (r DeleteCatch) Path() string      { return pathCatches + "/" + r.CatchID.String() }
func (DeleteCatch) Method() api.Method  { return api.MethodDelete }
func (r DeleteCatch) AuthToken() string { return r.Token }
