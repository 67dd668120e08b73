package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"agencyerp/internal/app/server"
	"agencyerp/internal/domain/auth"
	"agencyerp/internal/platform/config"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error any             `json:"error"`
}

func testConfig(dbURL string) config.Config {
	return config.Config{
		DatabaseURL:        dbURL,
		JWTSecret:          "test-secret",
		DataEncryptionKey:  "0123456789abcdef0123456789abcdef",
		Environment:        "test",
		SeedTenantName:     "Test Tenant",
		SeedAdminEmail:     "admin@test.local",
		SeedAdminPassword:  "ChangeMe123!",
		EmailFrom:          "no-reply@test.local",
		RunMigrations:      true,
		RunSeed:            true,
		MaxBodyBytes:       1048576,
		RateLimitPerMinute: 1000,
		PayslipDir:         "",
	}
}

func TestLeaveRequestLifecycle(t *testing.T) {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	cfg := testConfig(dbURL)
	app, err := server.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("failed to start app: %v", err)
	}
	defer app.Close()

	ts := httptest.NewServer(app.Router)
	defer ts.Close()
	client := ts.Client()

	adminToken := login(t, client, ts.URL, cfg.SeedAdminEmail, cfg.SeedAdminPassword)

	suffix := time.Now().UnixNano()
	employeeEmail := fmt.Sprintf("worker-%d@example.com", suffix)
	employeePassword := "Worker123!"
	employeeUserID := createUser(t, app, cfg.SeedTenantName, employeeEmail, employeePassword, auth.RoleEmployee)
	createEmployeeRow(t, app, cfg.SeedTenantName, employeeUserID, employeeEmail, nil, "")

	holidayName := fmt.Sprintf("Founders Day %d", suffix)
	postJSON(t, client, ts.URL+"/api/v1/leave/holidays", adminToken, map[string]any{
		"date": "2026-03-04",
		"name": holidayName,
	})

	// Monday 2026-03-02 through Sunday 2026-03-08 with a Wednesday holiday.
	preview := postJSON(t, client, ts.URL+"/api/v1/leave/calculate", adminToken, map[string]any{
		"start_date":        "2026-03-02",
		"end_date":          "2026-03-08",
		"is_sandwich_leave": true,
	})
	var previewPayload struct {
		TotalDays    int `json:"total_days"`
		WorkingDays  int `json:"working_days"`
		SandwichDays int `json:"sandwich_days"`
		HolidayCount int `json:"holiday_count"`
	}
	if err := json.Unmarshal(preview.Data, &previewPayload); err != nil {
		t.Fatalf("failed to decode preview: %v", err)
	}
	if previewPayload.TotalDays != 5 || previewPayload.WorkingDays != 4 || previewPayload.SandwichDays != 1 || previewPayload.HolidayCount != 1 {
		t.Fatalf("unexpected preview %+v", previewPayload)
	}

	employeeToken := login(t, client, ts.URL, employeeEmail, employeePassword)
	submit := postJSON(t, client, ts.URL+"/api/v1/leave/requests", employeeToken, map[string]any{
		"category":          "casual",
		"start_date":        "2026-03-02",
		"end_date":          "2026-03-08",
		"is_sandwich_leave": true,
		"reason":            "Family trip",
	})
	var submitPayload struct {
		ID           string `json:"id"`
		Status       string `json:"status"`
		TotalDays    int    `json:"total_days"`
		SandwichDays int    `json:"sandwich_days"`
	}
	if err := json.Unmarshal(submit.Data, &submitPayload); err != nil {
		t.Fatalf("failed to decode submission: %v", err)
	}
	if submitPayload.ID == "" || submitPayload.Status != "pending" {
		t.Fatalf("unexpected submission %+v", submitPayload)
	}
	if submitPayload.TotalDays != previewPayload.TotalDays || submitPayload.SandwichDays != previewPayload.SandwichDays {
		t.Fatalf("snapshot %+v does not match preview %+v", submitPayload, previewPayload)
	}

	approve := postJSON(t, client, ts.URL+"/api/v1/leave/requests/"+submitPayload.ID+"/approve", adminToken, map[string]any{
		"remarks": "Enjoy",
	})
	var approvePayload struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(approve.Data, &approvePayload); err != nil {
		t.Fatalf("failed to decode approval: %v", err)
	}
	if approvePayload.Status != "approved" {
		t.Fatalf("expected approved, got %s", approvePayload.Status)
	}

	// Deciding twice must conflict, and the stored snapshot must survive.
	postJSONStatus(t, client, ts.URL+"/api/v1/leave/requests/"+submitPayload.ID+"/reject", adminToken, map[string]any{}, http.StatusConflict)

	stored := getJSON(t, client, ts.URL+"/api/v1/leave/requests/"+submitPayload.ID, adminToken)
	var storedPayload struct {
		TotalDays    int    `json:"totalDays"`
		SandwichDays int    `json:"sandwichDays"`
		Status       string `json:"status"`
	}
	if err := json.Unmarshal(stored.Data, &storedPayload); err != nil {
		t.Fatalf("failed to decode stored request: %v", err)
	}
	if storedPayload.Status != "approved" || storedPayload.TotalDays != previewPayload.TotalDays || storedPayload.SandwichDays != previewPayload.SandwichDays {
		t.Fatalf("stored request lost its snapshot: %+v", storedPayload)
	}
}

func TestLeaveDecisionManagerAuthority(t *testing.T) {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	cfg := testConfig(dbURL)
	app, err := server.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("failed to start app: %v", err)
	}
	defer app.Close()

	ts := httptest.NewServer(app.Router)
	defer ts.Close()
	client := ts.Client()

	adminToken := login(t, client, ts.URL, cfg.SeedAdminEmail, cfg.SeedAdminPassword)

	suffix := time.Now().UnixNano()
	password := "Worker123!"

	managerEmail := fmt.Sprintf("manager-%d@example.com", suffix)
	managerUserID := createUser(t, app, cfg.SeedTenantName, managerEmail, password, auth.RoleManager)
	managerEmployeeID := createEmployeeRow(t, app, cfg.SeedTenantName, managerUserID, managerEmail, nil, "")

	otherManagerEmail := fmt.Sprintf("other-manager-%d@example.com", suffix)
	otherManagerUserID := createUser(t, app, cfg.SeedTenantName, otherManagerEmail, password, auth.RoleManager)
	createEmployeeRow(t, app, cfg.SeedTenantName, otherManagerUserID, otherManagerEmail, nil, "")

	// A manager-role account with no employee record at all.
	profilelessEmail := fmt.Sprintf("profileless-%d@example.com", suffix)
	createUser(t, app, cfg.SeedTenantName, profilelessEmail, password, auth.RoleManager)

	reportEmail := fmt.Sprintf("report-%d@example.com", suffix)
	reportUserID := createUser(t, app, cfg.SeedTenantName, reportEmail, password, auth.RoleEmployee)
	createEmployeeRow(t, app, cfg.SeedTenantName, reportUserID, reportEmail, nil, managerEmployeeID)

	orphanEmail := fmt.Sprintf("orphan-%d@example.com", suffix)
	orphanUserID := createUser(t, app, cfg.SeedTenantName, orphanEmail, password, auth.RoleEmployee)
	createEmployeeRow(t, app, cfg.SeedTenantName, orphanUserID, orphanEmail, nil, "")

	reportToken := login(t, client, ts.URL, reportEmail, password)
	submit := postJSON(t, client, ts.URL+"/api/v1/leave/requests", reportToken, map[string]any{
		"category":   "casual",
		"start_date": "2026-04-06",
		"end_date":   "2026-04-07",
		"reason":     "Appointment",
	})
	var reportRequest struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(submit.Data, &reportRequest); err != nil {
		t.Fatalf("failed to decode submission: %v", err)
	}

	// Only the assigned manager may decide; other managers are rejected even
	// though the role carries the approve permission.
	otherManagerToken := login(t, client, ts.URL, otherManagerEmail, password)
	postJSONStatus(t, client, ts.URL+"/api/v1/leave/requests/"+reportRequest.ID+"/approve", otherManagerToken, map[string]any{}, http.StatusForbidden)

	profilelessToken := login(t, client, ts.URL, profilelessEmail, password)
	postJSONStatus(t, client, ts.URL+"/api/v1/leave/requests/"+reportRequest.ID+"/approve", profilelessToken, map[string]any{}, http.StatusForbidden)

	managerToken := login(t, client, ts.URL, managerEmail, password)
	approve := postJSON(t, client, ts.URL+"/api/v1/leave/requests/"+reportRequest.ID+"/approve", managerToken, map[string]any{})
	var approvePayload struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(approve.Data, &approvePayload); err != nil {
		t.Fatalf("failed to decode approval: %v", err)
	}
	if approvePayload.Status != "approved" {
		t.Fatalf("expected approved, got %s", approvePayload.Status)
	}

	// A request from an employee without an assigned manager is out of reach
	// for every manager; it stays with HR or an admin.
	orphanToken := login(t, client, ts.URL, orphanEmail, password)
	orphanSubmit := postJSON(t, client, ts.URL+"/api/v1/leave/requests", orphanToken, map[string]any{
		"category":   "casual",
		"start_date": "2026-04-06",
		"end_date":   "2026-04-07",
		"reason":     "Appointment",
	})
	var orphanRequest struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(orphanSubmit.Data, &orphanRequest); err != nil {
		t.Fatalf("failed to decode submission: %v", err)
	}
	postJSONStatus(t, client, ts.URL+"/api/v1/leave/requests/"+orphanRequest.ID+"/approve", managerToken, map[string]any{}, http.StatusForbidden)

	adminApprove := postJSON(t, client, ts.URL+"/api/v1/leave/requests/"+orphanRequest.ID+"/approve", adminToken, map[string]any{})
	if err := json.Unmarshal(adminApprove.Data, &approvePayload); err != nil {
		t.Fatalf("failed to decode admin approval: %v", err)
	}
	if approvePayload.Status != "approved" {
		t.Fatalf("expected approved, got %s", approvePayload.Status)
	}
}

func TestLeaveCalculateRecurringHoliday(t *testing.T) {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	cfg := testConfig(dbURL)
	app, err := server.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("failed to start app: %v", err)
	}
	defer app.Close()

	ts := httptest.NewServer(app.Router)
	defer ts.Close()
	client := ts.Client()

	adminToken := login(t, client, ts.URL, cfg.SeedAdminEmail, cfg.SeedAdminPassword)

	suffix := time.Now().UnixNano()
	// Recorded years ago; the recurring flag projects it into the queried range.
	postJSON(t, client, ts.URL+"/api/v1/leave/holidays", adminToken, map[string]any{
		"date":      "2019-07-15",
		"name":      fmt.Sprintf("Annual Day %d", suffix),
		"recurring": true,
	})

	// Monday 2026-07-13 through Friday 2026-07-17; Wednesday is the recurrence.
	preview := postJSON(t, client, ts.URL+"/api/v1/leave/calculate", adminToken, map[string]any{
		"start_date": "2026-07-13",
		"end_date":   "2026-07-17",
	})
	var previewPayload struct {
		TotalDays    int `json:"total_days"`
		WorkingDays  int `json:"working_days"`
		HolidayCount int `json:"holiday_count"`
	}
	if err := json.Unmarshal(preview.Data, &previewPayload); err != nil {
		t.Fatalf("failed to decode preview: %v", err)
	}
	if previewPayload.TotalDays != 4 || previewPayload.WorkingDays != 4 || previewPayload.HolidayCount != 1 {
		t.Fatalf("unexpected preview %+v", previewPayload)
	}
}

func TestSalarySlipBatchSkipsExisting(t *testing.T) {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	cfg := testConfig(dbURL)
	cfg.PayslipDir = t.TempDir()
	app, err := server.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("failed to start app: %v", err)
	}
	defer app.Close()

	ts := httptest.NewServer(app.Router)
	defer ts.Close()
	client := ts.Client()

	adminToken := login(t, client, ts.URL, cfg.SeedAdminEmail, cfg.SeedAdminPassword)

	suffix := time.Now().UnixNano()
	month := "2026-05"
	salary := 60000.0
	var employeeIDs []string
	for i := 0; i < 3; i++ {
		email := fmt.Sprintf("slip-%d-%d@example.com", suffix, i)
		id := createEmployeeRow(t, app, cfg.SeedTenantName, "", email, &salary, "")
		employeeIDs = append(employeeIDs, id)
	}

	tenantID := tenantIDByName(t, app, cfg.SeedTenantName)
	if _, err := app.DB.Exec(context.Background(), `
    INSERT INTO salary_slips (tenant_id, employee_id, month, payment_date, basic_salary, hra, special_allowance, conveyance_allowance, total_allowances, gross_salary, deductions, net_salary)
    VALUES ($1,$2,$3,now(),30000,12000,9000,9000,30000,60000,0,60000)
  `, tenantID, employeeIDs[0], month); err != nil {
		t.Fatalf("failed to pre-insert slip: %v", err)
	}

	generate := postJSON(t, client, ts.URL+"/api/v1/payroll/slips/generate", adminToken, map[string]any{
		"month":         month,
		"payment_date":  "2026-05-31",
		"deduction_pct": 10,
	})
	var genPayload struct {
		Generated int      `json:"generated"`
		Errors    []string `json:"errors"`
	}
	if err := json.Unmarshal(generate.Data, &genPayload); err != nil {
		t.Fatalf("failed to decode generation summary: %v", err)
	}
	if genPayload.Generated < 2 {
		t.Fatalf("expected at least 2 slips generated, got %d (errors: %v)", genPayload.Generated, genPayload.Errors)
	}
	if len(genPayload.Errors) < 1 {
		t.Fatal("expected the pre-existing slip to be reported as skipped")
	}

	slips := getJSON(t, client, ts.URL+"/api/v1/payroll/slips?month="+month, adminToken)
	var slipsPayload struct {
		Total int `json:"total"`
	}
	if err := json.Unmarshal(slips.Data, &slipsPayload); err != nil {
		t.Fatalf("failed to decode slips: %v", err)
	}
	if slipsPayload.Total < 3 {
		t.Fatalf("expected 3 slips for the month, got %d", slipsPayload.Total)
	}

	// Re-running the same month generates nothing new.
	again := postJSON(t, client, ts.URL+"/api/v1/payroll/slips/generate", adminToken, map[string]any{
		"month":         month,
		"payment_date":  "2026-05-31",
		"deduction_pct": 10,
	})
	var againPayload struct {
		Generated int `json:"generated"`
	}
	if err := json.Unmarshal(again.Data, &againPayload); err != nil {
		t.Fatalf("failed to decode second summary: %v", err)
	}
	if againPayload.Generated != 0 {
		t.Fatalf("expected idempotent re-run, got %d new slips", againPayload.Generated)
	}
}

func tenantIDByName(t *testing.T, app *server.App, name string) string {
	t.Helper()
	var tenantID string
	if err := app.DB.QueryRow(context.Background(), "SELECT id FROM tenants WHERE name = $1", name).Scan(&tenantID); err != nil {
		t.Fatalf("failed to load tenant: %v", err)
	}
	return tenantID
}

func createUser(t *testing.T, app *server.App, tenantName, email, password, roleName string) string {
	t.Helper()
	ctx := context.Background()
	tenantID := tenantIDByName(t, app, tenantName)

	var roleID string
	if err := app.DB.QueryRow(ctx, "SELECT id FROM roles WHERE tenant_id = $1 AND name = $2", tenantID, roleName).Scan(&roleID); err != nil {
		t.Fatalf("failed to load role %s: %v", roleName, err)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	var userID string
	if err := app.DB.QueryRow(ctx, `
    INSERT INTO users (tenant_id, email, password_hash, role_id)
    VALUES ($1,$2,$3,$4)
    RETURNING id
  `, tenantID, email, hash, roleID).Scan(&userID); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return userID
}

func createEmployeeRow(t *testing.T, app *server.App, tenantName, userID, email string, salary *float64, managerID string) string {
	t.Helper()
	ctx := context.Background()
	tenantID := tenantIDByName(t, app, tenantName)

	var userRef any
	if userID != "" {
		userRef = userID
	}
	var managerRef any
	if managerID != "" {
		managerRef = managerID
	}
	var employeeID string
	if err := app.DB.QueryRow(ctx, `
    INSERT INTO employees (tenant_id, user_id, first_name, last_name, email, salary, manager_id, status)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
    RETURNING id
  `, tenantID, userRef, "Journey", "Tester", email, salary, managerRef, "active").Scan(&employeeID); err != nil {
		t.Fatalf("failed to create employee: %v", err)
	}
	return employeeID
}

func login(t *testing.T, client *http.Client, baseURL, email, password string) string {
	t.Helper()
	resp := postJSON(t, client, baseURL+"/api/v1/auth/login", "", map[string]any{
		"email":    email,
		"password": password,
	})
	var payload map[string]any
	if err := json.Unmarshal(resp.Data, &payload); err != nil {
		t.Fatalf("failed to decode login response: %v", err)
	}
	token, _ := payload["token"].(string)
	if token == "" {
		t.Fatal("expected token")
	}
	return token
}

func postJSON(t *testing.T, client *http.Client, url, token string, body any) envelope {
	t.Helper()
	return doJSON(t, client, http.MethodPost, url, token, body, 0)
}

func postJSONStatus(t *testing.T, client *http.Client, url, token string, body any, want int) envelope {
	t.Helper()
	return doJSON(t, client, http.MethodPost, url, token, body, want)
}

func getJSON(t *testing.T, client *http.Client, url, token string) envelope {
	t.Helper()
	return doJSON(t, client, http.MethodGet, url, token, nil, 0)
}

func doJSON(t *testing.T, client *http.Client, method, url, token string, body any, wantStatus int) envelope {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewBuffer(raw)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response: %v", err)
	}
	if wantStatus != 0 {
		if resp.StatusCode != wantStatus {
			t.Fatalf("expected status %d, got %d: %s", wantStatus, resp.StatusCode, string(raw))
		}
	} else if resp.StatusCode >= 400 {
		t.Fatalf("unexpected status %d: %s", resp.StatusCode, string(raw))
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return env
}
