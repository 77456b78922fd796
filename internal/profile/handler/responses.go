package handler

import (
	"encoding/json"
	"time"

	"dossier/internal/profile/gateway"
	"dossier/internal/profile/models"
	"dossier/internal/profile/service"
)

type editFieldRequest struct {
	Value json.RawMessage `json:"value"`
}

type rowResponse struct {
	Field string `json:"field"`
	Label string `json:"label"`
	Text  string `json:"text"`
}

type profileResponse struct {
	Status  string          `json:"status"`
	Profile json.RawMessage `json:"profile"`
	Valid   bool            `json:"valid"`
	Rows    []rowResponse   `json:"rows"`
}

type fieldResponse struct {
	Ordinal  int    `json:"ordinal"`
	Key      string `json:"key"`
	Label    string `json:"label"`
	Kind     string `json:"kind"`
	Required bool   `json:"required"`
	Nullable bool   `json:"nullable"`
}

type sessionResponse struct {
	ID              string          `json:"id"`
	State           string          `json:"state"`
	LoadStatus      string          `json:"load_status"`
	Profile         json.RawMessage `json:"profile"`
	Changed         bool            `json:"changed"`
	Valid           bool            `json:"valid"`
	NeedsSavePrompt bool            `json:"needs_save_prompt"`
	OpenedAt        time.Time       `json:"opened_at"`
}

type commitResponse struct {
	Profile json.RawMessage `json:"profile"`
}

type validationResponse struct {
	Error            string   `json:"error"`
	ErrorDescription string   `json:"error_description"`
	Missing          []string `json:"missing"`
}

func toProfileResponse(result gateway.LoadResult) (profileResponse, error) {
	p := result.ProfileOrDefault()
	body, err := models.Encode(p)
	if err != nil {
		return profileResponse{}, err
	}
	rows := p.Rows()
	out := make([]rowResponse, len(rows))
	for i, row := range rows {
		out[i] = rowResponse{Field: row.Field.Key(), Label: row.Label, Text: row.Text}
	}
	return profileResponse{
		Status:  result.Status.String(),
		Profile: body,
		Valid:   p.IsValid(),
		Rows:    out,
	}, nil
}

func fieldCatalog() []fieldResponse {
	fields := models.Fields()
	out := make([]fieldResponse, len(fields))
	for i, f := range fields {
		out[i] = fieldResponse{
			Ordinal:  f.Ordinal(),
			Key:      f.Key(),
			Label:    f.Label(),
			Kind:     f.Kind().String(),
			Required: f.Required(),
			Nullable: f.Nullable(),
		}
	}
	return out
}

func toSessionResponse(view service.SessionView) (sessionResponse, error) {
	body, err := models.Encode(view.Working)
	if err != nil {
		return sessionResponse{}, err
	}
	return sessionResponse{
		ID:              view.ID.String(),
		State:           view.State.String(),
		LoadStatus:      view.LoadStatus.String(),
		Profile:         body,
		Changed:         view.Changed,
		Valid:           view.Valid,
		NeedsSavePrompt: view.NeedsSavePrompt,
		OpenedAt:        view.OpenedAt,
	}, nil
}

func toValidationResponse(verr *models.ValidationError) validationResponse {
	missing := make([]string, len(verr.Missing))
	for i, f := range verr.Missing {
		missing[i] = f.Key()
	}
	return validationResponse{
		Error:            "validation",
		ErrorDescription: verr.Error(),
		Missing:          missing,
	}
}
