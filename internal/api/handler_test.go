package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/insightdelivered/slip-scanner/internal/models"
	"github.com/insightdelivered/slip-scanner/internal/parser"
	"github.com/insightdelivered/slip-scanner/internal/service"
	"github.com/insightdelivered/slip-scanner/internal/store"
)

const slip = `KASIKORNBANK
โอนเงินสำเร็จ
5 ธ.ค. 66 10:32 น.
ไปยัง
นาย ข ผู้รับ
จำนวน: 1,500.00 บาท
เลขที่รายการ: 015339103245ABC12`

func setupTestApp() *fiber.App {
	n := 0
	scanner := &parser.Scanner{
		Classifier: parser.DefaultClassifier(),
		Now:        func() time.Time { return time.Date(2024, time.January, 15, 9, 0, 0, 0, time.UTC) },
		NewID: func() string {
			n++
			return fmt.Sprintf("tx-%d", n)
		},
	}
	log := zerolog.Nop()
	h := &Handler{
		Service: service.New(store.NewMemory(), scanner, log),
		Log:     log,
	}
	return h.NewApp()
}

func do(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	return resp, body
}

func formRequest(path string, values url.Values) *http.Request {
	req := httptest.NewRequest("POST", path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestHealthEndpoint(t *testing.T) {
	app := setupTestApp()

	resp, body := do(t, app, httptest.NewRequest("GET", "/api/health", nil))
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}

	var result map[string]string
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result["status"] != "ok" {
		t.Errorf("expected status=ok, got %q", result["status"])
	}
	if result["engine"] != "fiber" {
		t.Errorf("expected engine=fiber, got %q", result["engine"])
	}
}

func TestScanEndpointRequiresInput(t *testing.T) {
	app := setupTestApp()

	req := httptest.NewRequest("POST", "/api/scan", nil)
	req.Header.Set("Content-Type", "multipart/form-data; boundary=----test")
	resp, _ := do(t, app, req)
	if resp.StatusCode == fiber.StatusOK {
		t.Error("expected non-200 for missing file")
	}
}

func TestScanText(t *testing.T) {
	app := setupTestApp()

	resp, body := do(t, app, formRequest("/api/scan", url.Values{"text": {slip}, "save": {"true"}, "csv": {"true"}}))
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}

	var result ScanResponse
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !result.Success || result.Bank != "KBank" || result.Count != 1 {
		t.Errorf("unexpected response: %+v", result)
	}
	if result.Transactions[0].ReferenceID != "015339103245ABC12" {
		t.Errorf("reference: got %q", result.Transactions[0].ReferenceID)
	}
	if !strings.Contains(result.CSV, "id,date,amount,type,category,note,ref,receiver") {
		t.Errorf("expected CSV in response, got %q", result.CSV)
	}

	_, body = do(t, app, httptest.NewRequest("GET", "/api/transactions", nil))
	var stored []models.Transaction
	if err := json.Unmarshal(body, &stored); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(stored) != 1 {
		t.Errorf("got %d stored, want 1", len(stored))
	}
}

func TestScanUpload(t *testing.T) {
	app := setupTestApp()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "slip.txt")
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte(slip))
	mw.WriteField("bank", "scb")
	mw.Close()

	req := httptest.NewRequest("POST", "/api/scan", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, body := do(t, app, req)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}

	var result ScanResponse
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	// the detected bank wins over the hint
	if result.Bank != "KBank" || result.Count != 1 {
		t.Errorf("unexpected response: %+v", result)
	}
}

func TestScanBadOptions(t *testing.T) {
	app := setupTestApp()

	tests := []struct {
		name   string
		values url.Values
		status int
	}{
		{"unknown bank", url.Values{"text": {slip}, "bank": {"hsbc"}}, fiber.StatusBadRequest},
		{"bad type", url.Values{"text": {slip}, "type": {"refund"}}, fiber.StatusBadRequest},
		{"blank text", url.Values{"text": {"   "}}, fiber.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, app, formRequest("/api/scan", tt.values))
			if resp.StatusCode != tt.status {
				t.Errorf("expected %d, got %d: %s", tt.status, resp.StatusCode, body)
			}
		})
	}
}

func TestParseEndpoint(t *testing.T) {
	app := setupTestApp()

	resp, body := do(t, app, jsonRequest("POST", "/api/parse", `{"sentence":"กินข้าว 60 บาท"}`))
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	var tx models.Transaction
	if err := json.Unmarshal(body, &tx); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if tx.Category != parser.CategoryFood || tx.Note != "กินข้าว" {
		t.Errorf("unexpected record: %+v", tx)
	}

	resp, _ = do(t, app, jsonRequest("POST", "/api/parse", `{"sentence":"ไม่มีตัวเลข"}`))
	if resp.StatusCode != fiber.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", resp.StatusCode)
	}
}

func TestRecategorizeLearns(t *testing.T) {
	app := setupTestApp()
	do(t, app, formRequest("/api/scan", url.Values{"text": {slip}, "save": {"true"}}))

	resp, body := do(t, app, jsonRequest("PATCH", "/api/transactions/tx-1/category", `{"category":"สุขภาพ"}`))
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}

	_, body = do(t, app, httptest.NewRequest("GET", "/api/preferences", nil))
	var prefs map[string]string
	if err := json.Unmarshal(body, &prefs); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if prefs["นาย ข ผู้รับ"] != "สุขภาพ" {
		t.Errorf("got %v, want the receiver learned", prefs)
	}

	resp, _ = do(t, app, jsonRequest("PATCH", "/api/transactions/missing/category", `{"category":"สุขภาพ"}`))
	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestConfirmAndDelete(t *testing.T) {
	app := setupTestApp()

	body := `[{"id":"m1","amount":"45","type":"expense","category":"อาหาร","date":"15/01/2567","note":"กาแฟ"}]`
	resp, out := do(t, app, jsonRequest("POST", "/api/transactions", body))
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, out)
	}

	resp, _ = do(t, app, jsonRequest("POST", "/api/transactions", `[{"id":"m2","amount":"45","type":"expense","category":"อาหาร","date":"2024-01-15"}]`))
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("expected 400 for a bad date, got %d", resp.StatusCode)
	}

	resp, _ = do(t, app, httptest.NewRequest("DELETE", "/api/transactions/m1", nil))
	if resp.StatusCode != fiber.StatusNoContent {
		t.Errorf("expected 204, got %d", resp.StatusCode)
	}
	resp, _ = do(t, app, httptest.NewRequest("GET", "/api/transactions/m1", nil))
	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", resp.StatusCode)
	}
}

func TestListCSV(t *testing.T) {
	app := setupTestApp()
	do(t, app, formRequest("/api/scan", url.Values{"text": {slip}, "save": {"true"}}))

	resp, body := do(t, app, httptest.NewRequest("GET", "/api/transactions?format=csv", nil))
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("content type: got %q", ct)
	}
	if !strings.Contains(string(body), "tx-1,05/12/2566,1500.00,expense") {
		t.Errorf("unexpected CSV: %s", body)
	}
}

func TestImportCSV(t *testing.T) {
	app := setupTestApp()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", "backup.csv")
	fw.Write([]byte("id,date,amount,type,category,note\nb1,05/12/2566,60,expense,อาหาร,ข้าว\n"))
	mw.Close()

	req := httptest.NewRequest("POST", "/api/transactions/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, body := do(t, app, req)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}

	resp, _ = do(t, app, httptest.NewRequest("GET", "/api/transactions/b1", nil))
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("expected imported record, got %d", resp.StatusCode)
	}
}

func TestPreferencesImport(t *testing.T) {
	app := setupTestApp()

	resp, body := do(t, app, jsonRequest("PUT", "/api/preferences", `{"GRAB":"เดินทาง","ab":"อื่นๆ"}`))
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	var prefs map[string]string
	if err := json.Unmarshal(body, &prefs); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(prefs) != 1 || prefs["GRAB"] != "เดินทาง" {
		t.Errorf("got %v", prefs)
	}

	resp, body = do(t, app, jsonRequest("POST", "/api/preferences", `{"receiver":"ร้านป้าแดง","category":"อาหาร"}`))
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, &prefs); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(prefs) != 2 {
		t.Errorf("got %v, want two receivers", prefs)
	}
}

func TestEnqueueWithoutQueue(t *testing.T) {
	app := setupTestApp()

	resp, _ := do(t, app, jsonRequest("POST", "/api/jobs", `{"text":"โอนเงิน 100.00 บาท"}`))
	if resp.StatusCode != fiber.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", resp.StatusCode)
	}
}
