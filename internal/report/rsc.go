package report

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/JonMunkholm/ibreport/internal/csvkit"
	"github.com/JonMunkholm/ibreport/internal/timeleap"
)

// SchemeFile is the calculation scheme expired_rsc inserts above its
// result. It is looked up in the scripts dir.
const SchemeFile = "active_expired_RSC.ins"

// DefaultScheme is used when the scripts dir has no SchemeFile. Row 5 is
// the result header and row 6 the Total row.
const DefaultScheme = `;=b5;=c5;=d5;=e5
;=sum(b3:b4);=sum(c3:c4);=sum(d3:d4);=sum(e3:e4)
active;=sum(c4:e4);=sum(d4:e4);=e4
expired;=b6;=c6;=d6;=e6
`

func init() {
	Register(Script{
		Name:        "expired_rsc",
		Group:       "rsc",
		Usage:       "INFILE [COUNTRY]",
		Description: "Count RSCs per customer by expiration date",
		Run:         ExpiredRSC,
	})
}

// ExpiredRSC writes NAME-ibase.csv: RSCs per customer counted by expiry
// date relative to today, headed by the calculation scheme.
func ExpiredRSC(ctx context.Context, env *Env) (*Result, error) {
	p := NewPipeline(env)
	defer p.Cleanup()

	scheme, err := loadScheme(env)
	if err != nil {
		return nil, err
	}

	tl := timeleap.New(env.Clock)
	b2y, b1y, today := tl.B2Y(), tl.B1Y(), tl.Today()
	buckets, err := rscBuckets(b2y, b1y, today)
	if err != nil {
		return nil, err
	}

	labels := make([]string, len(buckets))
	for i, b := range buckets {
		labels[i] = b.Label
	}
	env.Logger.Info("RSC expiration brackets", "labels", strings.Join(labels, " "))

	counted := p.Temp("country-ibase.csv")
	sorted := p.Temp("country-ibase-sort.csv")
	out := p.Output(env.ResultName("", "-ibase.csv"))

	if err := p.Stage(ctx, "Extracting RSCs and categorizing by expiration", env.Input, counted, Pure(func(t *csvkit.Table) *csvkit.Table {
		return csvkit.Count(t, csvkit.CountOptions{
			Key:        []csvkit.KeyCol{{Col: ibCustomer, Title: "Customer"}},
			Buckets:    buckets,
			SumTitle:   "Total",
			TotalTitle: "Sum",
		})
	})); err != nil {
		return nil, err
	}

	if err := p.Stage(ctx, "Sorting customers by RSC count", counted, sorted, Pure(func(t *csvkit.Table) *csvkit.Table {
		return csvkit.Sort(t, csvkit.SortOptions{
			Keys:  []csvkit.SortKey{{Col: 5, Type: csvkit.SortNumeric}},
			Desc:  true,
			Start: 1,
		})
	})); err != nil {
		return nil, err
	}

	if err := p.Stage(ctx, "Inserting calculation scheme", sorted, out, Pure(func(t *csvkit.Table) *csvkit.Table {
		return csvkit.Insert(t, scheme, csvkit.Top)
	})); err != nil {
		return nil, err
	}
	return done(env, p, "expired_rsc", out), nil
}

func rscBuckets(b2y, b1y, today time.Time) ([]csvkit.Bucket, error) {
	layout, err := timeleap.Layout(timeleap.GermanDate)
	if err != nil {
		return nil, err
	}
	var labelErr error
	f := func(d time.Time) string {
		s, err := timeleap.Format(timeleap.GermanDate, d)
		if err != nil {
			labelErr = err
		}
		return s
	}

	buckets := []csvkit.Bucket{
		csvkit.DateBelow(ibRSCEnd, layout, b2y, "<"+f(b2y)),
		csvkit.DateBetween(ibRSCEnd, layout, b2y, b1y, f(b2y)+"-"+f(b1y)),
		csvkit.DateBetween(ibRSCEnd, layout, timeleap.NextDay(b1y), today, f(timeleap.NextDay(b1y))+"-"+f(today)),
		csvkit.DateAbove(ibRSCEnd, layout, today, ">"+f(today)),
	}
	if labelErr != nil {
		return nil, labelErr
	}
	return buckets, nil
}

func loadScheme(env *Env) ([][]string, error) {
	if env.ScriptsDir != "" {
		path := filepath.Join(env.ScriptsDir, SchemeFile)
		rows, err := csvkit.ReadInsertFile(path, env.CSV.Delimiter)
		switch {
		case err == nil:
			env.Logger.Debug("using calculation scheme", "path", path)
			return rows, nil
		case !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}
	env.Logger.Debug("using default calculation scheme")
	return csvkit.ParseInsertRows(strings.NewReader(DefaultScheme), env.CSV.Delimiter)
}
