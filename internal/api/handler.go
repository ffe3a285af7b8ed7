// Package api exposes the scanner over HTTP with fiber.
package api

import (
	"bytes"
	"errors"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/insightdelivered/slip-scanner/internal/extractor"
	"github.com/insightdelivered/slip-scanner/internal/logger"
	"github.com/insightdelivered/slip-scanner/internal/models"
	"github.com/insightdelivered/slip-scanner/internal/parser"
	"github.com/insightdelivered/slip-scanner/internal/service"
	"github.com/insightdelivered/slip-scanner/internal/store"
	"github.com/insightdelivered/slip-scanner/internal/writer"
)

const version = "1.0.0"

// maxUpload bounds slip images and statement PDFs.
const maxUpload = 32 << 20

// ScanResponse is the JSON response from /api/scan.
type ScanResponse struct {
	Success      bool                     `json:"success"`
	Error        string                   `json:"error,omitempty"`
	Bank         string                   `json:"bank,omitempty"`
	Multi        bool                     `json:"multi"`
	Transactions []models.Transaction     `json:"transactions"`
	Candidates   []models.AmountCandidate `json:"candidates,omitempty"`
	Count        int                      `json:"count"`
	CSV          string                   `json:"csv,omitempty"`
	RawText      string                   `json:"rawText,omitempty"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Handler holds the HTTP handlers for the API.
type Handler struct {
	Service   *service.ScanService
	OCR       extractor.OCROptions
	StaticDir string
	Log       zerolog.Logger
}

// NewApp builds the fiber app with middleware and routes.
func (h *Handler) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "slipscan",
		BodyLimit:    maxUpload,
		ErrorHandler: h.errorHandler,
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders: "Content-Type",
	}))
	app.Use(h.requestLogger)
	h.RegisterRoutes(app)
	return app
}

// RegisterRoutes sets up the HTTP routes.
func (h *Handler) RegisterRoutes(app *fiber.App) {
	api := app.Group("/api")
	api.Get("/health", HandleHealth)
	api.Post("/scan", h.handleScan)
	api.Post("/parse", h.handleParse)
	api.Post("/jobs", h.handleEnqueue)

	api.Get("/transactions", h.handleList)
	api.Post("/transactions", h.handleConfirm)
	api.Post("/transactions/import", h.handleImport)
	api.Get("/transactions/:id", h.handleGet)
	api.Patch("/transactions/:id/category", h.handleRecategorize)
	api.Delete("/transactions/:id", h.handleDelete)

	api.Get("/preferences", h.handlePreferences)
	api.Put("/preferences", h.handleImportPreferences)
	api.Post("/preferences", h.handleLearn)

	// Serve the web client; unknown non-API paths fall back to index.html.
	if h.StaticDir != "" {
		app.Static("/", h.StaticDir)
		app.Get("/*", func(c *fiber.Ctx) error {
			if strings.HasPrefix(c.Path(), "/api/") {
				return fiber.ErrNotFound
			}
			return c.SendFile(filepath.Join(h.StaticDir, "index.html"))
		})
	}
}

func HandleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"engine":  "fiber",
		"version": version,
	})
}

// handleScan accepts a multipart "file" upload or a "text" field with
// already recognized text. Optional fields: bank, type, save, csv.
func (h *Handler) handleScan(c *fiber.Ctx) error {
	ctx := logger.WithContext(c.UserContext(), h.Log)

	req, err := scanRequest(c)
	if err != nil {
		return err
	}

	text := c.FormValue("text")
	source := "text"
	if text == "" {
		fh, err := c.FormFile("file")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "No file uploaded. Use form field 'file' or 'text'.")
		}
		f, err := fh.Open()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Failed to read upload.")
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Failed to read upload.")
		}

		text, err = extractor.ExtractBytes(ctx, fh.Filename, data, h.OCR)
		if err != nil {
			return err
		}
		source = fh.Filename
	}

	res, err := h.Service.ScanText(ctx, text, req)
	if err != nil {
		return err
	}

	resp := ScanResponse{
		Success:      true,
		Bank:         string(res.Bank),
		Multi:        res.Multi,
		Transactions: res.Transactions,
		Candidates:   res.Candidates,
		Count:        len(res.Transactions),
		RawText:      text,
	}
	// nil marshals to null, not []
	if resp.Transactions == nil {
		resp.Transactions = []models.Transaction{}
	}

	if c.FormValue("csv") == "true" {
		var buf bytes.Buffer
		w := &writer.CSVWriter{IncludeHeader: true}
		if err := w.Write(&buf, resp.Transactions, writer.Metadata{Source: source, Bank: res.Bank}); err != nil {
			return err
		}
		resp.CSV = buf.String()
	}
	return c.JSON(resp)
}

func scanRequest(c *fiber.Ctx) (service.ScanRequest, error) {
	var req service.ScanRequest

	if hint := c.FormValue("bank"); hint != "" {
		bank, ok := parser.ParseBankType(hint)
		if !ok {
			return req, fiber.NewError(fiber.StatusBadRequest, "Unknown bank: "+strconv.Quote(hint)+". Use kbank, scb, krungthai, bbl or krungsri.")
		}
		req.BankHint = bank
	}

	switch dir := models.Direction(c.FormValue("type")); dir {
	case "", models.Expense, models.Income:
		req.Direction = dir
	default:
		return req, fiber.NewError(fiber.StatusBadRequest, "type must be income or expense")
	}

	req.Save = c.FormValue("save") == "true"
	return req, nil
}

type parseRequest struct {
	Sentence string `json:"sentence"`
	Save     bool   `json:"save"`
}

func (h *Handler) handleParse(c *fiber.Ctx) error {
	var req parseRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body.")
	}
	tx, err := h.Service.Entry(c.UserContext(), req.Sentence, req.Save)
	if err != nil {
		return err
	}
	return c.JSON(tx)
}

type jobRequest struct {
	Source string `json:"source"`
	Text   string `json:"text"`
	Bank   string `json:"bank"`
}

func (h *Handler) handleEnqueue(c *fiber.Ctx) error {
	var req jobRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body.")
	}
	if _, ok := parser.ParseBankType(req.Bank); !ok {
		return fiber.NewError(fiber.StatusBadRequest, "Unknown bank: "+strconv.Quote(req.Bank))
	}
	job, err := h.Service.Enqueue(c.UserContext(), req.Source, req.Text, req.Bank)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"success": true, "jobId": job.ID})
}

// handleList returns JSON, or a CSV backup with ?format=csv.
func (h *Handler) handleList(c *fiber.Ctx) error {
	txs, err := h.Service.Transactions(c.UserContext())
	if err != nil {
		return err
	}
	if txs == nil {
		txs = []models.Transaction{}
	}

	if c.Query("format") == "csv" {
		var buf bytes.Buffer
		w := &writer.CSVWriter{BOM: true}
		if err := w.Write(&buf, txs, writer.Metadata{}); err != nil {
			return err
		}
		c.Attachment("slipscan_backup_" + time.Now().Format("2006-01-02") + ".csv")
		c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
		return c.Send(buf.Bytes())
	}
	return c.JSON(txs)
}

func (h *Handler) handleGet(c *fiber.Ctx) error {
	tx, err := h.Service.Transaction(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(tx)
}

func (h *Handler) handleConfirm(c *fiber.Ctx) error {
	var txs []models.Transaction
	if err := c.BodyParser(&txs); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Expected a JSON array of transactions.")
	}
	if err := h.Service.Confirm(c.UserContext(), txs...); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(txs)
}

// handleImport reads a CSV backup from the "file" field.
func (h *Handler) handleImport(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "No file uploaded. Use form field 'file'.")
	}
	f, err := fh.Open()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Failed to read upload.")
	}
	defer f.Close()

	txs, err := writer.ReadCSV(f, writer.ReadOptions{Now: time.Now(), NewID: uuid.NewString})
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := h.Service.Confirm(c.UserContext(), txs...); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "count": len(txs)})
}

type categoryRequest struct {
	Category string `json:"category"`
}

func (h *Handler) handleRecategorize(c *fiber.Ctx) error {
	var req categoryRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body.")
	}
	tx, err := h.Service.Recategorize(c.UserContext(), c.Params("id"), req.Category)
	if err != nil {
		return err
	}
	return c.JSON(tx)
}

func (h *Handler) handleDelete(c *fiber.Ctx) error {
	if err := h.Service.Delete(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) handlePreferences(c *fiber.Ctx) error {
	prefs, err := h.Service.Preferences(c.UserContext())
	if err != nil {
		return err
	}
	if prefs == nil {
		prefs = models.Preferences{}
	}
	return c.JSON(prefs)
}

func (h *Handler) handleImportPreferences(c *fiber.Ctx) error {
	var prefs models.Preferences
	if err := c.BodyParser(&prefs); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Expected a JSON object of receiver to category.")
	}
	if err := h.Service.ImportPreferences(c.UserContext(), prefs); err != nil {
		return err
	}
	return h.handlePreferences(c)
}

type learnRequest struct {
	Receiver string `json:"receiver"`
	Category string `json:"category"`
}

func (h *Handler) handleLearn(c *fiber.Ctx) error {
	var req learnRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body.")
	}
	prefs, err := h.Service.Learn(c.UserContext(), req.Receiver, req.Category)
	if err != nil {
		return err
	}
	return c.JSON(prefs)
}

// errorHandler maps service and store errors to status codes.
func (h *Handler) errorHandler(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	var fe *fiber.Error

	switch {
	case errors.As(err, &fe):
		status = fe.Code
	case errors.Is(err, store.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, service.ErrEmptyText),
		errors.Is(err, service.ErrInvalidTransaction):
		status = fiber.StatusBadRequest
	case errors.Is(err, service.ErrNotATransaction),
		errors.Is(err, extractor.ErrUnreadablePDF):
		status = fiber.StatusUnprocessableEntity
	case errors.Is(err, extractor.ErrUnsupportedFile):
		status = fiber.StatusUnsupportedMediaType
	case errors.Is(err, service.ErrQueueDisabled),
		errors.Is(err, extractor.ErrOCRUnavailable):
		status = fiber.StatusServiceUnavailable
	}

	if status >= fiber.StatusInternalServerError {
		h.Log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
	}
	return c.Status(status).JSON(errorResponse{Success: false, Error: err.Error()})
}

func (h *Handler) requestLogger(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	h.Log.Debug().
		Err(err).
		Str("method", c.Method()).
		Str("path", c.Path()).
		Int("status", c.Response().StatusCode()).
		Dur("took", time.Since(start)).
		Msg("request")
	return err
}
