package gdelt

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ToneFX/internal/domain/models"
	drepo "ToneFX/internal/domain/repository"
	"ToneFX/internal/service/ratelimit"
	xhttp "ToneFX/pkg/http"
	applogger "ToneFX/pkg/logger"
	"ToneFX/pkg/util"
)

// Client fetches daily event archives from the remote bulk source.
// One HTTP resource per calendar date: <baseURL>/<yyyymmdd>.export.CSV.zip,
// a zip holding a single tab-delimited text file.
type Client struct {
	baseURL string
	client  *xhttp.Client
	limiter *ratelimit.Limiter
	rate    float64
	logger  *applogger.Logger
}

// New creates an archive client. ratePerSec caps outbound fetches to stay
// inside the source's informal limits; zero disables pacing.
func New(baseURL string, timeout time.Duration, ratePerSec float64, l *applogger.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  xhttp.NewClient(xhttp.WithTimeout(timeout)),
		limiter: ratelimit.New(),
		rate:    ratePerSec,
		logger:  l,
	}
}

// FetchDay downloads and parses one day's archive. An absent archive yields
// drepo.ErrNoArchive; an unknown column layout yields drepo.ErrUnknownSchema.
func (c *Client) FetchDay(ctx context.Context, date time.Time) ([]models.RawEvent, error) {
	if err := c.pace(ctx); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/%s.export.CSV.zip", c.baseURL, util.CompactDate(date))
	resp, err := c.client.SendRequest(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    url,
	})
	if err != nil {
		return nil, fmt.Errorf("archive fetch %s: %w", util.CompactDate(date), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, drepo.ErrNoArchive
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("archive fetch %s: unexpected status %d", util.CompactDate(date), resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("archive read %s: %w", util.CompactDate(date), err)
	}

	return parseArchive(body)
}

// pace blocks until a rate token is available or ctx is done.
func (c *Client) pace(ctx context.Context) error {
	if c.rate <= 0 {
		return nil
	}
	for !c.limiter.Allow("archive", c.rate, c.rate) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
	return nil
}

// parseArchive unpacks the zip and parses its single delimited member.
func parseArchive(b []byte) ([]models.RawEvent, error) {
	zr, err := zip.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return nil, fmt.Errorf("archive unzip: %w", err)
	}
	if len(zr.File) == 0 {
		return nil, fmt.Errorf("archive unzip: empty archive")
	}

	f, err := zr.File[0].Open()
	if err != nil {
		return nil, fmt.Errorf("archive member open: %w", err)
	}
	defer f.Close()

	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("archive member read: %w", err)
	}

	return parseRecords(string(raw))
}

// parseRecords turns the tab-delimited dump into raw events, detecting the
// schema variant from the first record's shape. Records missing a core
// field (date, country, tone) are dropped silently; that is a data-quality
// gap, not an error.
func parseRecords(data string) ([]models.RawEvent, error) {
	lines := strings.Split(data, "\n")

	var (
		sc       schema
		detected bool
	)
	out := make([]models.RawEvent, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if !detected {
			sc, detected = detectSchema(len(fields))
			if !detected {
				return nil, fmt.Errorf("%w: %d columns", drepo.ErrUnknownSchema, len(fields))
			}
		}
		if len(fields) < sc.fields {
			continue
		}

		ev, ok := parseEvent(fields, sc)
		if !ok {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

func parseEvent(fields []string, sc schema) (models.RawEvent, bool) {
	var ev models.RawEvent

	date, ok := util.ParseCompactDate(strings.TrimSpace(fields[sc.date]))
	if !ok {
		return ev, false
	}
	country := strings.TrimSpace(fields[sc.country])
	if country == "" || country == "---" {
		return ev, false
	}
	tone, err := strconv.ParseFloat(strings.TrimSpace(fields[sc.tone]), 64)
	if err != nil {
		return ev, false
	}

	ev.EventDate = date
	ev.Country = country
	ev.AvgTone = tone
	// Non-core numeric fields coerce leniently: a bad value zeroes the
	// field and lets the downstream filters discard the record.
	ev.EventID, _ = strconv.ParseInt(strings.TrimSpace(fields[sc.eventID]), 10, 64)
	ev.IsRoot = strings.TrimSpace(fields[sc.isRoot]) == "1"
	if n, err := strconv.Atoi(strings.TrimSpace(fields[sc.mentions])); err == nil && n >= 0 {
		ev.NumMentions = n
	}
	return ev, true
}
