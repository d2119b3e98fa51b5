package report

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/yourusername/quantlink-pairs/pkg/analysis"
	"github.com/yourusername/quantlink-pairs/pkg/logging"
)

// Publisher fans pair reports out to subscribers.
type Publisher interface {
	Publish(ctx context.Context, r *analysis.PairReport) error
}

// Conn is the subset of *nats.Conn used for publishing.
type Conn interface {
	Publish(subj string, data []byte) error
}

// NATSPublisher 把报告摘要编码为 protobuf Struct 发布到 NATS
type NATSPublisher struct {
	conn   Conn
	prefix string
	log    zerolog.Logger
}

// NewNATSPublisher subjects are <prefix>.<A>.<B>.
func NewNATSPublisher(conn Conn, prefix string, log zerolog.Logger) *NATSPublisher {
	if prefix == "" {
		prefix = "pairs.report"
	}
	return &NATSPublisher{conn: conn, prefix: prefix, log: logging.Component(log, "publisher")}
}

// Subject returns the subject a pair is published on.
func (p *NATSPublisher) Subject(r *analysis.PairReport) string {
	return fmt.Sprintf("%s.%s.%s", p.prefix, subjectToken(r.Pair.A), subjectToken(r.Pair.B))
}

func (p *NATSPublisher) Publish(ctx context.Context, r *analysis.PairReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := EncodeSummary(r)
	if err != nil {
		return err
	}
	subject := p.Subject(r)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	p.log.Debug().Str("subject", subject).Int("bytes", len(data)).Msg("report published")
	return nil
}

// EncodeSummary marshals the report summary as a protobuf Struct.
func EncodeSummary(r *analysis.PairReport) ([]byte, error) {
	c := r.Cointegration
	fields := map[string]any{
		"id":              r.ID,
		"pair":            r.Pair.String(),
		"a":               r.Pair.A,
		"b":               r.Pair.B,
		"method":          string(r.Options.Method),
		"engle_granger_p": number(c.EngleGrangerP),
		"spread_adf_p":    number(c.SpreadADFP),
		"ratio_adf_p":     number(c.RatioADFP),
		"hedge_ratio":     number(c.HedgeRatio),
		"nobs":            float64(c.NObs),
		"cointegrated":    r.Cointegrated,
		"zscore":          number(r.Stats.ZScore),
		"correlation":     number(r.Stats.Correlation),
		"covariance":      number(r.Stats.Covariance),
		"generated_at":    r.GeneratedAt.UTC().Format(time.RFC3339),
	}
	if p := r.Partition; p != nil {
		fields["critical_buy"] = p.CriticalBuy
		fields["critical_sell"] = p.CriticalSell
	}
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	return proto.Marshal(s)
}

// DecodeSummary is the inverse of EncodeSummary.
func DecodeSummary(data []byte) (*structpb.Struct, error) {
	s := &structpb.Struct{}
	if err := proto.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return s, nil
}

// NopPublisher discards reports.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, *analysis.PairReport) error {
	return nil
}

// number maps NaN and ±Inf to null.
func number(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

func subjectToken(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t':
			return '_'
		}
		return r
	}, s)
}
