// Package vcard imports contact birthdays from vCard sources, either a
// local .vcf file or a CardDAV/WebDAV endpoint.
package vcard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	govcard "github.com/emersion/go-vcard"
	"github.com/zalando/go-keyring"

	"github.com/tartampluch/birthday-tracker/internal/config"
	"github.com/tartampluch/birthday-tracker/internal/metrics"
	"github.com/tartampluch/birthday-tracker/internal/store"
)

// ImportConfig carries the source parameters for one import run.
type ImportConfig struct {
	Mode      string // config.ImportModeLocal or config.ImportModeWeb
	LocalPath string
	WebURL    string
	WebUser   string
}

// Result summarizes an import run.
type Result struct {
	Processed int `json:"processed"`
	Imported  int `json:"imported"`
	Skipped   int `json:"skipped"`
}

// Importer reads vCard streams and feeds new birthdays into the store.
// Contacts whose name and date already exist are skipped so repeated
// imports stay idempotent.
type Importer struct {
	log     *slog.Logger
	store   *store.Store
	fetcher Fetcher
	metrics *metrics.Collector

	// lookupPassword resolves the CardDAV password for a username.
	// Defaults to the system keyring; replaceable in tests.
	lookupPassword func(user string) (string, error)
}

// NewImporter creates an importer backed by the system keyring for
// CardDAV credentials.
func NewImporter(st *store.Store, fetcher Fetcher, mc *metrics.Collector, log *slog.Logger) *Importer {
	if log == nil {
		log = slog.Default()
	}
	return &Importer{
		log:     log.With(config.LogKeyComponent, config.CompImport),
		store:   st,
		fetcher: fetcher,
		metrics: mc,
		lookupPassword: func(user string) (string, error) {
			return keyring.Get(config.KeyringService, user)
		},
	}
}

// Run executes a full import. Malformed cards and unparseable dates are
// skipped with a log entry rather than aborting the run.
func (im *Importer) Run(ctx context.Context, cfg ImportConfig) (Result, error) {
	im.log.Info(config.MsgImportStarted, config.LogKeyMode, cfg.Mode)

	reader, err := im.openSource(ctx, cfg)
	if err != nil {
		return Result{}, err
	}
	defer func() { _ = reader.Close() }()

	res, err := im.importStream(ctx, reader)
	if err != nil {
		return res, err
	}

	im.metrics.RecordImported(res.Imported)
	im.log.Info(config.MsgImportDone,
		config.LogKeyCount, res.Processed,
		config.LogKeyImported, res.Imported,
		config.LogKeySkipped, res.Skipped,
	)
	return res, nil
}

func (im *Importer) openSource(ctx context.Context, cfg ImportConfig) (io.ReadCloser, error) {
	switch cfg.Mode {
	case config.ImportModeLocal:
		if cfg.LocalPath == "" {
			return nil, errors.New(config.ErrImportPathEmpty)
		}
		return os.Open(cfg.LocalPath)
	case config.ImportModeWeb:
		if cfg.WebURL == "" {
			return nil, errors.New(config.ErrImportURLEmpty)
		}
		if im.fetcher == nil {
			return nil, errors.New(config.ErrFetcherMissing)
		}
		pass := ""
		if cfg.WebUser != "" {
			p, err := im.lookupPassword(cfg.WebUser)
			if err != nil {
				im.log.Warn(config.ErrKeyringLookup, config.LogKeyError, err)
			} else {
				pass = p
			}
		}
		return im.fetcher.Fetch(ctx, cfg.WebURL, cfg.WebUser, pass)
	default:
		return nil, fmt.Errorf("%s: %q", config.ErrImportMode, cfg.Mode)
	}
}

func (im *Importer) importStream(ctx context.Context, r io.Reader) (Result, error) {
	decoder := govcard.NewDecoder(r)
	var res Result

	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		card, err := decoder.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			im.log.Warn(config.MsgImportSkipCard, config.LogKeyError, err)
			res.Skipped++
			continue
		}
		res.Processed++

		bday := card.Get(config.VCardBDAY)
		if bday == nil || bday.Value == "" {
			continue
		}

		date, err := parseBDAY(bday.Value)
		if err != nil {
			im.log.Debug(config.MsgImportSkipDate, config.LogKeyValue, bday.Value)
			res.Skipped++
			continue
		}

		name := contactName(card)

		year, month, day := date.year, date.month, date.day
		if im.store.HasSame(name, year, month, day) {
			im.log.Debug(config.MsgImportSkipDup, config.LogKeyName, name)
			res.Skipped++
			continue
		}

		if _, err := im.store.Add(ctx, store.AddFields{Name: name, Date: date.String()}); err != nil {
			im.log.Warn(config.MsgImportSkipCard,
				config.LogKeyName, name,
				config.LogKeyError, err,
			)
			res.Skipped++
			continue
		}
		res.Imported++
	}

	return res, nil
}

// contactName picks the display name: FN preferred, then N, then a
// fallback placeholder.
func contactName(card govcard.Card) string {
	if fn := card.Get(config.VCardFN); fn != nil && fn.Value != "" {
		return fn.Value
	}
	if n := card.Get(config.VCardN); n != nil && n.Value != "" {
		return n.Value
	}
	return config.FallbackName
}

type bdayDate struct {
	year, month, day int
}

func (d bdayDate) String() string {
	if d.year == 0 {
		return fmt.Sprintf("%02d-%02d", d.month, d.day)
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.year, d.month, d.day)
}

// parseBDAY handles the RFC 6350 BDAY forms plus common variants. Year
// zero marks a truncated date.
func parseBDAY(value string) (bdayDate, error) {
	withYear := []string{
		config.DateFormatFull,
		config.DateFormatFullBasic,
		config.DateFormatRFC3339,
		config.DateFormatFullT,
	}
	for _, f := range withYear {
		if t, err := time.Parse(f, value); err == nil {
			return bdayDate{year: t.Year(), month: int(t.Month()), day: t.Day()}, nil
		}
	}

	withoutYear := []string{config.DateFormatVCardNoYD, config.DateFormatVCardNoYB}
	for _, f := range withoutYear {
		if t, err := time.Parse(f, value); err == nil {
			return bdayDate{month: int(t.Month()), day: t.Day()}, nil
		}
	}

	return bdayDate{}, errors.New(config.ErrDateParse)
}
