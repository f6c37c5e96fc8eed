package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/spigell/rubric-evaluator/internal/applicant"
)

// Outbox writes each report to <dir>/report-<applicationId>.json.
type Outbox struct {
	dir    string
	logger *zap.Logger
}

func NewOutbox(dir string, logger *zap.Logger) *Outbox {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Outbox{dir: dir, logger: logger}
}

// Path is where the report of an application is written.
func (o *Outbox) Path(applicationID int) string {
	return filepath.Join(o.dir, fmt.Sprintf("report-%d.json", applicationID))
}

func (o *Outbox) Deliver(_ context.Context, report *applicant.Report) error {
	if report == nil {
		return fmt.Errorf("report is nil")
	}
	if err := os.MkdirAll(o.dir, 0o755); err != nil {
		return fmt.Errorf("creating outbox: %w", err)
	}

	file, err := os.CreateTemp(o.dir, "report_*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp report: %w", err)
	}
	defer os.Remove(file.Name())

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(report); err != nil {
		file.Close()
		return fmt.Errorf("encoding report: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("closing report: %w", err)
	}

	path := o.Path(report.ApplicationID)
	if err := os.Rename(file.Name(), path); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}

	o.logger.Info("report written to outbox", zap.String("path", path))
	return nil
}
