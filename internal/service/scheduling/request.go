package scheduling

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// GenerateRequest is the wire form of a recurrence, shared by the HTTP API and
// the CLI.
type GenerateRequest struct {
	CenterID    string  `json:"centerId" validate:"required,uuid"`
	TutorID     string  `json:"tutorId" validate:"required,uuid"`
	SessionType string  `json:"sessionType" validate:"required,oneof=ONE_ON_ONE GROUP CLASS"`
	StudentID   *string `json:"studentId,omitempty" validate:"omitempty,uuid"`
	GroupID     *string `json:"groupId,omitempty" validate:"omitempty,uuid"`
	StartDate   string  `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate     string  `json:"endDate" validate:"required,datetime=2006-01-02"`
	Weekdays    []int   `json:"weekdays" validate:"required,min=1,dive,min=1,max=7"`
	StartTime   string  `json:"startTime" validate:"required,datetime=15:04"`
	EndTime     string  `json:"endTime" validate:"required,datetime=15:04"`
	Timezone    string  `json:"timezone" validate:"required,timezone"`
	ZoomLink    *string `json:"zoomLink,omitempty" validate:"omitempty,max=2048"`
}

// ValidationErrors collects every rejected field of a request.
type ValidationErrors []*ValidationError

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, e := range v {
		parts = append(parts, e.Error())
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (v ValidationErrors) Unwrap() []error {
	out := make([]error, 0, len(v))
	for _, e := range v {
		out = append(out, e)
	}
	return out
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ParseRequest validates the request shape and converts it into a
// RecurrenceSpec. Field-level failures are returned together as
// ValidationErrors.
func ParseRequest(req GenerateRequest) (RecurrenceSpec, error) {
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return RecurrenceSpec{}, err
		}
		out := make(ValidationErrors, 0, len(verrs))
		for _, fe := range verrs {
			out = append(out, invalidField(fe.Field(), describeTag(fe)))
		}
		return RecurrenceSpec{}, out
	}

	var errs ValidationErrors
	spec := RecurrenceSpec{
		SessionType: SessionType(req.SessionType),
		Weekdays:    req.Weekdays,
		Timezone:    req.Timezone,
	}

	spec.CenterID = parseID(&errs, "centerId", req.CenterID)
	spec.TutorID = parseID(&errs, "tutorId", req.TutorID)
	if req.StudentID != nil {
		id := parseID(&errs, "studentId", *req.StudentID)
		spec.StudentID = &id
	}
	if req.GroupID != nil {
		id := parseID(&errs, "groupId", *req.GroupID)
		spec.GroupID = &id
	}

	var err error
	if spec.StartDate, err = ParseDate(req.StartDate); err != nil {
		errs = append(errs, invalidField("startDate", "must be a YYYY-MM-DD date"))
	}
	if spec.EndDate, err = ParseDate(req.EndDate); err != nil {
		errs = append(errs, invalidField("endDate", "must be a YYYY-MM-DD date"))
	}
	if spec.StartTime, err = ParseClock(req.StartTime); err != nil {
		errs = append(errs, invalidField("startTime", "must be an HH:MM time"))
	}
	if spec.EndTime, err = ParseClock(req.EndTime); err != nil {
		errs = append(errs, invalidField("endTime", "must be an HH:MM time"))
	}
	spec.ZoomLink = req.ZoomLink

	if len(errs) > 0 {
		return RecurrenceSpec{}, errs
	}
	return spec, nil
}

func parseID(errs *ValidationErrors, field, s string) uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		*errs = append(*errs, invalidField(field, "must be a UUID"))
	}
	return id
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "uuid":
		return "must be a UUID"
	case "oneof":
		return "must be one of " + fe.Param()
	case "datetime":
		return "must match format " + fe.Param()
	case "timezone":
		return "unknown timezone"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}

// checkShape verifies the session-type dependent fields.
func checkShape(spec RecurrenceSpec) error {
	if !spec.SessionType.Valid() {
		return invalidField("sessionType", "must be one of ONE_ON_ONE GROUP CLASS")
	}
	if spec.SessionType.GroupBased() {
		if spec.GroupID == nil {
			return invalidField("groupId", "is required for "+string(spec.SessionType)+" sessions")
		}
		if spec.StudentID != nil {
			return invalidField("studentId", "must be empty for "+string(spec.SessionType)+" sessions")
		}
		return nil
	}
	if spec.StudentID == nil {
		return invalidField("studentId", "is required for ONE_ON_ONE sessions")
	}
	if spec.GroupID != nil {
		return invalidField("groupId", "must be empty for ONE_ON_ONE sessions")
	}
	return nil
}

// normalizeZoomLink returns the canonical link and whether one was supplied.
// Only absolute http(s) URLs with a host are accepted.
func normalizeZoomLink(raw *string) (string, bool, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return "", false, nil
	}
	u, err := url.Parse(strings.TrimSpace(*raw))
	if err != nil {
		return "", false, invalidField("zoomLink", "must be a valid URL")
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", false, invalidField("zoomLink", "must be an absolute http or https URL")
	}
	u.Host = strings.ToLower(u.Host)
	return u.String(), true, nil
}
