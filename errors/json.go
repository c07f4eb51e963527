package errors

import (
	"encoding/json"
)

// ErrorResponse is the body the HTTP frontend writes for a failed request.
// The cause chain is never serialized: it can carry local paths of the data
// directory and remote URLs with credentials.
type ErrorResponse struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Classification string                 `json:"classification"`
	Context        map[string]interface{} `json:"context,omitempty"`
}

// ToJSON flattens err into an ErrorResponse. Errors outside this package
// report CodeUnknown with their Error() text. Returns nil for a nil err.
//
//	return c.JSON(http.StatusMethodNotAllowed, errors.ToJSON(err))
func ToJSON(err error) *ErrorResponse {
	if err == nil {
		return nil
	}

	resp := &ErrorResponse{
		Code:           string(GetCode(err)),
		Message:        err.Error(),
		Classification: string(GetClassification(err)),
	}

	var platformErr PlatformError
	if As(err, &platformErr) {
		resp.Message = platformErr.Message()
		resp.Context = platformErr.Context()
	}
	return resp
}

// MarshalJSON renders the error in the ErrorResponse shape, so json.Marshal
// of a PlatformError matches what ToJSON produces:
//
//	{"code":"READ_ONLY_FILESYSTEM","message":"read-only filesystem","classification":"PERMANENT"}
func (e *platformError) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(&ErrorResponse{
		Code:           string(e.code),
		Message:        e.message,
		Classification: string(e.classification),
		Context:        e.context,
	})
	if err != nil {
		return nil, &platformError{
			code:           CodeInternal,
			classification: ClassificationPermanent,
			message:        "failed to marshal error response",
			cause:          err,
		}
	}
	return data, nil
}
