package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/homedispo/crm-bridge/internal/entity"
	"github.com/homedispo/crm-bridge/internal/infra/integration/ghl"
	"go.uber.org/zap"
)

// Follow-up tasks fall due at 10:00 in the team's time zone.
const (
	followUpZone = "America/Chicago"
	followUpHour = 10
)

var (
	dailyWord   = regexp.MustCompile(`(?i)\bdaily\b`)
	weeklyWord  = regexp.MustCompile(`(?i)\bweekly\b`)
	monthlyWord = regexp.MustCompile(`(?i)\bmonthly\b`)
	joinedFreq  = regexp.MustCompile(`(?i)follow\s*up\s*(daily|weekly|monthly)`)
	firstNumber = regexp.MustCompile(`\d+`)
)

type TaskGateway interface {
	CreateTask(ctx context.Context, locationID, contactID string, task ghl.Task) (json.RawMessage, error)
}

type FollowUpInput struct {
	ContactID      string `json:"contact_id"`
	LocationID     string `json:"location_id"`
	FollowUpStatus string `json:"follow_up_status"`
	AssignedTo     string `json:"assigned_to"`
	DryRun         bool   `json:"dry_run"`
}

type FollowUpOutput struct {
	Status         string          `json:"status"`
	ContactID      string          `json:"contact_id"`
	LocationID     string          `json:"location_id,omitempty"`
	FollowUpStatus string          `json:"follow_up_status,omitempty"`
	Task           ghl.Task        `json:"task"`
	CRMResponse    json.RawMessage `json:"crm_response,omitempty"`
}

// FollowUpTaskCreator turns a contact's follow-up cadence into a dated CRM
// task.
type FollowUpTaskCreator struct {
	CRM    TaskGateway
	Logger *zap.Logger
	Now    func() time.Time
}

func NewFollowUpTaskCreator(crm TaskGateway, logger *zap.Logger) *FollowUpTaskCreator {
	return &FollowUpTaskCreator{CRM: crm, Logger: logger.Named("followup"), Now: time.Now}
}

// Execute builds the task and, unless DryRun is set, creates it.
func (c *FollowUpTaskCreator) Execute(ctx context.Context, input FollowUpInput) (*FollowUpOutput, error) {
	if errs := ValidateFollowUpInput(input); len(errs) > 0 {
		return nil, errs
	}

	status := strings.TrimSpace(input.FollowUpStatus)
	days, err := FollowUpDays(status)
	if err != nil {
		c.Logger.Debug("unrecognized follow up status, task due today", zap.String("status", status))
		days = 0
	}
	due, err := FollowUpDueDate(c.Now(), days)
	if err != nil {
		return nil, err
	}

	freq, n := parseFollowLabel(status)
	task := ghl.Task{
		Title:      "Follow Up",
		Body:       "Follow Up #" + strconv.Itoa(n),
		DueDate:    due,
		AssignedTo: strings.TrimSpace(input.AssignedTo),
	}
	if freq != "" {
		task.Title = "Follow Up " + freq
		task.Body = freq + " Follow Up #" + strconv.Itoa(n)
	}

	out := &FollowUpOutput{
		ContactID:      input.ContactID,
		LocationID:     input.LocationID,
		FollowUpStatus: status,
		Task:           task,
	}
	if input.DryRun {
		out.Status = "dry-run"
		return out, nil
	}

	resp, err := c.CRM.CreateTask(ctx, input.LocationID, input.ContactID, task)
	if err != nil {
		return nil, err
	}

	c.Logger.Info("follow up task created",
		zap.String("location_id", input.LocationID),
		zap.String("contact_id", input.ContactID),
		zap.String("due", due))
	out.Status = "success"
	out.CRMResponse = resp
	return out, nil
}

// FollowUpDays maps a cadence label such as "Follow Up Weekly #2" to the
// number of days until the next touch.
func FollowUpDays(status string) (int, error) {
	s := strings.ToLower(strings.TrimSpace(status))
	if s == "" {
		return 0, &entity.ValidationError{Field: "follow_up_status", Message: "is empty"}
	}

	switch {
	case strings.HasPrefix(s, "follow up daily"):
		return 1, nil
	case strings.HasPrefix(s, "follow up weekly"):
		return 7, nil
	case strings.HasPrefix(s, "follow up monthly"):
		return 30, nil
	case dailyWord.MatchString(s):
		return 1, nil
	case weeklyWord.MatchString(s):
		return 7, nil
	case monthlyWord.MatchString(s):
		return 30, nil
	}
	return 0, &entity.ValidationError{Field: "follow_up_status", Message: fmt.Sprintf("unrecognized follow up status %q", status)}
}

// FollowUpDueDate is 10:00 Chicago time, days after now, rendered in UTC.
func FollowUpDueDate(now time.Time, days int) (string, error) {
	if days < 0 {
		return "", &entity.ValidationError{Field: "days", Message: "must be non-negative"}
	}
	loc, err := time.LoadLocation(followUpZone)
	if err != nil {
		return "", fmt.Errorf("load %s: %w", followUpZone, err)
	}

	local := now.In(loc).AddDate(0, 0, days)
	target := time.Date(local.Year(), local.Month(), local.Day(), followUpHour, 0, 0, 0, loc)
	return target.UTC().Format(time.RFC3339), nil
}

// parseFollowLabel returns the capitalized cadence ("" if none) and the
// first number in the label, 1 when there is none.
func parseFollowLabel(label string) (string, int) {
	if label == "" {
		return "", 1
	}

	var freq string
	switch {
	case dailyWord.MatchString(label):
		freq = "Daily"
	case weeklyWord.MatchString(label):
		freq = "Weekly"
	case monthlyWord.MatchString(label):
		freq = "Monthly"
	default:
		if m := joinedFreq.FindStringSubmatch(label); m != nil {
			w := strings.ToLower(m[1])
			freq = strings.ToUpper(w[:1]) + w[1:]
		}
	}

	n := 1
	if m := firstNumber.FindString(label); m != "" {
		if v, err := strconv.Atoi(m); err == nil {
			n = v
		}
	}
	return freq, n
}
