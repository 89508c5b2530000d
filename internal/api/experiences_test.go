package api

import (
	"net/http"
	"testing"

	"bodylog/internal/models"
)

func logExperience(t *testing.T, server *Server, token, body string) (*models.Experience, string) {
	t.Helper()

	rr := doRequest(t, server, http.MethodPost, "/api/experiences/", token, body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create experience status = %d, body=%q", rr.Code, rr.Body.String())
	}

	var resp struct {
		Experience *models.Experience `json:"experience"`
		SessionID  string             `json:"sessionId"`
	}
	decodeBody(t, rr, &resp)
	if resp.Experience == nil || resp.SessionID == "" {
		t.Fatalf("create response incomplete: %q", rr.Body.String())
	}
	return resp.Experience, resp.SessionID
}

func TestCreateExperienceWithSensations(t *testing.T) {
	server, _ := newTestServer(t)
	token, user := signIn(t, server, "feeler@example.com")

	experience, sessionID := logExperience(t, server, token, `{
		"notes":"Tight chest before practice",
		"moodRating":4,
		"energyRating":3,
		"groundingRating":5,
		"sensations":[
			{"segmentId":"seg-thoracic","sensationType":"tension","intensity":7},
			{"segmentId":"seg-ocular","sensationType":"warmth","intensity":2,"notes":"mild"}
		]
	}`)

	if experience.UserID != user.ID {
		t.Errorf("userId = %q, want %q", experience.UserID, user.ID)
	}
	if experience.ExperienceType != "general" {
		t.Errorf("experienceType = %q, want general", experience.ExperienceType)
	}
	if experience.SessionID != sessionID {
		t.Errorf("sessionId mismatch: %q vs %q", experience.SessionID, sessionID)
	}
	if len(experience.Sensations) != 2 {
		t.Fatalf("len(sensations) = %d, want 2", len(experience.Sensations))
	}
	if experience.Sensations[0].SegmentName == "" {
		t.Error("sensation missing joined segment name")
	}
}

func TestBeforeAfterShareSession(t *testing.T) {
	server, _ := newTestServer(t)
	token, _ := signIn(t, server, "pairing@example.com")

	_, sessionID := logExperience(t, server, token,
		`{"experienceType":"before","moodRating":3,"energyRating":4,"groundingRating":2}`)

	after, afterSession := logExperience(t, server, token,
		`{"experienceType":"after","sessionId":"`+sessionID+`","moodRating":7,"energyRating":6,"groundingRating":8}`)
	if afterSession != sessionID {
		t.Fatalf("after session = %q, want %q", afterSession, sessionID)
	}
	if after.ExperienceType != "after" {
		t.Errorf("experienceType = %q, want after", after.ExperienceType)
	}

	rr := doRequest(t, server, http.MethodGet, "/api/experiences/session/"+sessionID, token, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("session fetch status = %d", rr.Code)
	}

	var resp struct {
		Experiences []*models.Experience `json:"experiences"`
	}
	decodeBody(t, rr, &resp)
	if len(resp.Experiences) != 2 {
		t.Fatalf("len(experiences) = %d, want 2", len(resp.Experiences))
	}
	// Session fetches come back in log order.
	if resp.Experiences[0].ExperienceType != "before" || resp.Experiences[1].ExperienceType != "after" {
		t.Errorf("session order = %q,%q", resp.Experiences[0].ExperienceType, resp.Experiences[1].ExperienceType)
	}
}

func TestExperiencesAreOwnerScoped(t *testing.T) {
	server, _ := newTestServer(t)

	ownerToken, _ := signIn(t, server, "owner@example.com")
	otherToken, _ := signIn(t, server, "peeker@example.com")

	experience, _ := logExperience(t, server, ownerToken, `{"notes":"private entry","moodRating":5}`)

	rr := doRequest(t, server, http.MethodGet, "/api/experiences/"+experience.ID, otherToken, "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("foreign get status = %d, want %d", rr.Code, http.StatusNotFound)
	}

	rr = doRequest(t, server, http.MethodDelete, "/api/experiences/"+experience.ID, otherToken, "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("foreign delete status = %d, want %d", rr.Code, http.StatusNotFound)
	}

	rr = doRequest(t, server, http.MethodGet, "/api/experiences/", otherToken, "")
	var listing struct {
		Experiences []*models.Experience `json:"experiences"`
	}
	decodeBody(t, rr, &listing)
	if len(listing.Experiences) != 0 {
		t.Errorf("foreign listing returned %d experiences", len(listing.Experiences))
	}
}

func TestDeleteExperienceRemovesIt(t *testing.T) {
	server, _ := newTestServer(t)
	token, _ := signIn(t, server, "cleaner@example.com")

	experience, _ := logExperience(t, server, token,
		`{"moodRating":6,"sensations":[{"segmentId":"seg-pelvic","intensity":4}]}`)

	rr := doRequest(t, server, http.MethodDelete, "/api/experiences/"+experience.ID, token, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rr.Code)
	}

	rr = doRequest(t, server, http.MethodGet, "/api/experiences/"+experience.ID, token, "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestCreateExperienceRejectsOutOfRangeRating(t *testing.T) {
	server, _ := newTestServer(t)
	token, _ := signIn(t, server, "extremes@example.com")

	rr := doRequest(t, server, http.MethodPost, "/api/experiences/", token, `{"moodRating":11}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}

	rr = doRequest(t, server, http.MethodPost, "/api/experiences/", token,
		`{"sensations":[{"segmentId":"seg-oral","intensity":0}]}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("nested status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestSafetyCheckin(t *testing.T) {
	server, _ := newTestServer(t)
	token, _ := signIn(t, server, "careful@example.com")

	experience, _ := logExperience(t, server, token, `{"moodRating":2}`)

	rr := doRequest(t, server, http.MethodPost, "/api/experiences/safety-checkin", token,
		`{"experienceId":"`+experience.ID+`","feelingSafe":false,"needsSupport":true,"notes":"felt overwhelmed"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("checkin status = %d, body=%q", rr.Code, rr.Body.String())
	}

	var resp struct {
		Success bool   `json:"success"`
		ID      string `json:"id"`
	}
	decodeBody(t, rr, &resp)
	if !resp.Success || resp.ID == "" {
		t.Errorf("checkin response = %+v", resp)
	}
}
