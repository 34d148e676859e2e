package assignment

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/nurselink/nurselink/internal/platform/auth"
)

func newHandlerFixture() (*Handler, *echo.Echo, *mockDirectory) {
	svc, dir := newTestService()
	return NewHandler(svc), echo.New(), dir
}

func newRequest(e *echo.Echo, method, target, body string, p *auth.Principal) (echo.Context, *httptest.ResponseRecorder) {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if p != nil {
		req = req.WithContext(auth.ContextWithPrincipal(req.Context(), p))
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func httpCode(t *testing.T, err error) int {
	t.Helper()
	he, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	return he.Code
}

func TestCreateAssignmentHandler_Created(t *testing.T) {
	h, e, dir := newHandlerFixture()
	nurseID := dir.addUser(auth.RoleNurse)
	patientID := dir.addUser(auth.RolePatient)
	doctor := &auth.Principal{UserID: dir.addUser(auth.RoleDoctor), Role: auth.RoleDoctor}

	body := `{"nurse_id":"` + nurseID.String() + `","patient_id":"` + patientID.String() + `"}`
	c, rec := newRequest(e, http.MethodPost, "/api/v1/assignments", body, doctor)
	if err := h.CreateAssignment(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}

	var a Assignment
	if err := json.Unmarshal(rec.Body.Bytes(), &a); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if a.NurseID != nurseID || a.PatientID != patientID {
		t.Error("response does not match the request")
	}
	if a.AssignedBy != doctor.UserID {
		t.Errorf("expected assigned_by %s, got %s", doctor.UserID, a.AssignedBy)
	}
	if !a.IsActive {
		t.Error("new assignment should be active")
	}
}

func TestCreateAssignmentHandler_Conflict(t *testing.T) {
	h, e, dir := newHandlerFixture()
	patientID := dir.addUser(auth.RolePatient)
	doctor := &auth.Principal{UserID: dir.addUser(auth.RoleDoctor), Role: auth.RoleDoctor}

	body := `{"nurse_id":"` + dir.addUser(auth.RoleNurse).String() + `","patient_id":"` + patientID.String() + `"}`
	c, _ := newRequest(e, http.MethodPost, "/api/v1/assignments", body, doctor)
	if err := h.CreateAssignment(c); err != nil {
		t.Fatalf("first create: %v", err)
	}

	body = `{"nurse_id":"` + dir.addUser(auth.RoleNurse).String() + `","patient_id":"` + patientID.String() + `"}`
	c, _ = newRequest(e, http.MethodPost, "/api/v1/assignments", body, doctor)
	if code := httpCode(t, h.CreateAssignment(c)); code != http.StatusConflict {
		t.Errorf("expected 409, got %d", code)
	}
}

func TestCreateAssignmentHandler_Failures(t *testing.T) {
	h, e, dir := newHandlerFixture()
	nurseID := dir.addUser(auth.RoleNurse)
	patientID := dir.addUser(auth.RolePatient)
	doctorID := dir.addUser(auth.RoleDoctor)
	doctor := &auth.Principal{UserID: doctorID, Role: auth.RoleDoctor}

	cases := []struct {
		name      string
		body      string
		principal *auth.Principal
		wantCode  int
	}{
		{
			"unknown nurse",
			`{"nurse_id":"` + uuid.New().String() + `","patient_id":"` + patientID.String() + `"}`,
			doctor, http.StatusNotFound,
		},
		{
			"nurse id with wrong role",
			`{"nurse_id":"` + doctorID.String() + `","patient_id":"` + patientID.String() + `"}`,
			doctor, http.StatusBadRequest,
		},
		{
			"malformed nurse id",
			`{"nurse_id":"not-a-uuid","patient_id":"` + patientID.String() + `"}`,
			doctor, http.StatusBadRequest,
		},
		{
			"missing patient id",
			`{"nurse_id":"` + nurseID.String() + `"}`,
			doctor, http.StatusBadRequest,
		},
		{
			"no principal",
			`{"nurse_id":"` + nurseID.String() + `","patient_id":"` + patientID.String() + `"}`,
			nil, http.StatusUnauthorized,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := newRequest(e, http.MethodPost, "/api/v1/assignments", tc.body, tc.principal)
			if code := httpCode(t, h.CreateAssignment(c)); code != tc.wantCode {
				t.Errorf("expected %d, got %d", tc.wantCode, code)
			}
		})
	}
}

func TestEndAssignmentHandler(t *testing.T) {
	h, e, dir := newHandlerFixture()
	a, err := h.svc.Create(context.Background(),
		dir.addUser(auth.RoleNurse), dir.addUser(auth.RolePatient), dir.addUser(auth.RoleDoctor))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	c, rec := newRequest(e, http.MethodPost, "/api/v1/assignments/end", "", nil)
	c.SetParamNames("id")
	c.SetParamValues(a.ID.String())
	if err := h.EndAssignment(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}

	c, _ = newRequest(e, http.MethodPost, "/api/v1/assignments/end", "", nil)
	c.SetParamNames("id")
	c.SetParamValues(a.ID.String())
	if code := httpCode(t, h.EndAssignment(c)); code != http.StatusNotFound {
		t.Errorf("expected 404 on second end, got %d", code)
	}

	c, _ = newRequest(e, http.MethodPost, "/api/v1/assignments/end", "", nil)
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")
	if code := httpCode(t, h.EndAssignment(c)); code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed id, got %d", code)
	}
}

func TestListAssignmentsHandler(t *testing.T) {
	h, e, dir := newHandlerFixture()
	doctorID := dir.addUser(auth.RoleDoctor)
	nurse1 := dir.addUser(auth.RoleNurse)
	nurse2 := dir.addUser(auth.RoleNurse)

	first, err := h.svc.Create(context.Background(), nurse1, dir.addUser(auth.RolePatient), doctorID)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	h.svc.End(context.Background(), first.ID)
	h.svc.Create(context.Background(), nurse1, dir.addUser(auth.RolePatient), doctorID)
	h.svc.Create(context.Background(), nurse2, dir.addUser(auth.RolePatient), doctorID)

	c, rec := newRequest(e, http.MethodGet, "/api/v1/assignments", "", nil)
	if err := h.ListAssignments(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var page struct {
		Data  []*Assignment `json:"data"`
		Total int           `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if page.Total != 3 || len(page.Data) != 3 {
		t.Errorf("expected 3 rows, got total=%d len=%d", page.Total, len(page.Data))
	}

	c, rec = newRequest(e, http.MethodGet, "/api/v1/assignments?nurse_id="+nurse1.String()+"&active=true", "", nil)
	if err := h.ListAssignments(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if page.Total != 1 {
		t.Errorf("expected 1 active row for nurse1, got %d", page.Total)
	}

	c, _ = newRequest(e, http.MethodGet, "/api/v1/assignments?nurse_id=zzz", "", nil)
	if code := httpCode(t, h.ListAssignments(c)); code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed nurse_id, got %d", code)
	}

	c, _ = newRequest(e, http.MethodGet, "/api/v1/assignments?active=maybe", "", nil)
	if code := httpCode(t, h.ListAssignments(c)); code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed active flag, got %d", code)
	}
}

func TestStatsHandler(t *testing.T) {
	h, e, dir := newHandlerFixture()
	doctorID := dir.addUser(auth.RoleDoctor)
	h.svc.Create(context.Background(), dir.addUser(auth.RoleNurse), dir.addUser(auth.RolePatient), doctorID)
	h.svc.Create(context.Background(), dir.addUser(auth.RoleNurse), dir.addUser(auth.RolePatient), doctorID)

	c, rec := newRequest(e, http.MethodGet, "/api/v1/assignments/stats", "", nil)
	if err := h.Stats(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body map[string]int
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["active_assignments"] != 2 {
		t.Errorf("expected 2 active, got %d", body["active_assignments"])
	}
}

func TestNurseForPatientHandler(t *testing.T) {
	h, e, dir := newHandlerFixture()
	nurseID := dir.addUser(auth.RoleNurse)
	patientID := dir.addUser(auth.RolePatient)
	h.svc.Create(context.Background(), nurseID, patientID, dir.addUser(auth.RoleDoctor))

	c, rec := newRequest(e, http.MethodGet, "/api/v1/patients/nurse", "", nil)
	c.SetParamNames("id")
	c.SetParamValues(patientID.String())
	if err := h.NurseForPatient(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	var body map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["patient_id"] != patientID.String() {
		t.Errorf("expected patient id in body, got %v", body["patient_id"])
	}
	if body["nurse_id"] != nurseID.String() {
		t.Errorf("expected nurse id in body, got %v", body["nurse_id"])
	}
}

func TestNurseForPatientHandler_Unassigned(t *testing.T) {
	h, e, dir := newHandlerFixture()
	patientID := dir.addUser(auth.RolePatient)

	c, rec := newRequest(e, http.MethodGet, "/api/v1/patients/nurse", "", nil)
	c.SetParamNames("id")
	c.SetParamValues(patientID.String())
	if err := h.NurseForPatient(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 for unassigned patient, got %d", rec.Code)
	}
	var body map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &body)
	v, present := body["nurse_id"]
	if !present || v != nil {
		t.Errorf("expected null nurse_id, got %v", v)
	}
}

func TestPatientsForNurseHandler(t *testing.T) {
	h, e, dir := newHandlerFixture()
	nurseID := dir.addUser(auth.RoleNurse)
	p1 := dir.addUser(auth.RolePatient)
	h.svc.Create(context.Background(), nurseID, p1, dir.addUser(auth.RoleDoctor))

	cases := []struct {
		name      string
		principal *auth.Principal
		wantCode  int
	}{
		{"admin reads any nurse", &auth.Principal{UserID: uuid.New(), Role: auth.RoleAdmin}, http.StatusOK},
		{"doctor reads any nurse", &auth.Principal{UserID: uuid.New(), Role: auth.RoleDoctor}, http.StatusOK},
		{"nurse reads own list", &auth.Principal{UserID: nurseID, Role: auth.RoleNurse}, http.StatusOK},
		{"nurse reads another nurse", &auth.Principal{UserID: uuid.New(), Role: auth.RoleNurse}, http.StatusForbidden},
		{"no principal", nil, http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, rec := newRequest(e, http.MethodGet, "/api/v1/nurses/patients", "", tc.principal)
			c.SetParamNames("id")
			c.SetParamValues(nurseID.String())
			err := h.PatientsForNurse(c)
			if tc.wantCode == http.StatusOK {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				var body patientsForNurseResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
					t.Fatalf("decode body: %v", err)
				}
				if len(body.PatientIDs) != 1 || body.PatientIDs[0] != p1 {
					t.Errorf("expected [%s], got %v", p1, body.PatientIDs)
				}
				return
			}
			if code := httpCode(t, err); code != tc.wantCode {
				t.Errorf("expected %d, got %d", tc.wantCode, code)
			}
		})
	}
}

func TestPatientsForNurseHandler_EmptyList(t *testing.T) {
	h, e, dir := newHandlerFixture()
	nurseID := dir.addUser(auth.RoleNurse)

	c, rec := newRequest(e, http.MethodGet, "/api/v1/nurses/patients", "",
		&auth.Principal{UserID: nurseID, Role: auth.RoleNurse})
	c.SetParamNames("id")
	c.SetParamValues(nurseID.String())
	if err := h.PatientsForNurse(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &body)
	ids, ok := body["patient_ids"].([]interface{})
	if !ok {
		t.Fatalf("expected patient_ids array, got %v", body["patient_ids"])
	}
	if len(ids) != 0 {
		t.Errorf("expected empty list, got %v", ids)
	}
}
