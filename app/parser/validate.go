package parser

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/news-harvest/app/database"
	"github.com/lysyi3m/news-harvest/app/sandbox"
)

const analyzeLimit = 2000

// ValidateParser compiles every field pattern of p case-insensitively.
func ValidateParser(p *database.Parser) error {
	for _, field := range database.ParserFields {
		rule := p.Field(field)
		if rule == nil || rule.Regex == "" {
			continue
		}
		if _, err := sandbox.Compile(rule.Regex, "i"); err != nil {
			return &InvalidPatternError{Field: field, Pattern: rule.Regex, Err: err}
		}
	}
	return nil
}

// AnalyzeAllParsers reports every stored parser with a pattern that does not compile.
func (e *Engine) AnalyzeAllParsers(ctx context.Context) ([]ParserIssue, error) {
	parsers, err := e.parsers.FindAll(ctx, nil, analyzeLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load parsers: %w", err)
	}

	issues := []ParserIssue{}
	for i := range parsers {
		p := &parsers[i]

		var found []PatternIssue
		for _, field := range database.ParserFields {
			rule := p.Field(field)
			if rule == nil || rule.Regex == "" {
				continue
			}
			if _, err := sandbox.Compile(rule.Regex, "i"); err != nil {
				found = append(found, PatternIssue{Field: field, Error: err.Error(), Regex: rule.Regex})
			}
		}

		if len(found) > 0 {
			issues = append(issues, ParserIssue{ParserID: p.ID, ChannelID: p.Channel, Issues: found})
		}
	}

	slog.Info("Parser analysis complete", "parsers", len(parsers), "problematic", len(issues))

	return issues, nil
}

func (e *Engine) CreateParser(ctx context.Context, p *database.Parser) (*database.Parser, error) {
	if err := ValidateParser(p); err != nil {
		return nil, err
	}
	if err := e.parsers.Insert(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (e *Engine) UpdateParser(ctx context.Context, id string, p *database.Parser) (*database.Parser, error) {
	if err := ValidateParser(p); err != nil {
		return nil, err
	}
	p.ID = id
	if err := e.parsers.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}
