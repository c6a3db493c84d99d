// Package export renders audit reports for a project, either as
// Markdown for pasting into documents or as a standalone HTML page.
// Aggregate statistics are cached briefly since exports of large
// projects are often requested repeatedly.
package export

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/cfornesa/ethics-risk-audit-assistant/internal/datastore"
	"github.com/cfornesa/ethics-risk-audit-assistant/internal/logging"
)

const (
	statsCacheTTL     = 5 * time.Minute
	statsCacheCleanup = 10 * time.Minute
)

// Service renders project reports from the datastore.
type Service struct {
	store  datastore.Interface
	cache  *gocache.Cache
	logger *slog.Logger
}

// New creates the export service.
func New(store datastore.Interface) *Service {
	logger := logging.ForService("export")
	if logger == nil {
		logger = slog.Default().With("service", "export")
	}
	return &Service{
		store:  store,
		cache:  gocache.New(statsCacheTTL, statsCacheCleanup),
		logger: logger,
	}
}

// Report holds everything a rendered export needs: the project, its
// aggregate statistics, and its items ordered by descending risk.
type Report struct {
	Project     datastore.Project
	Statistics  datastore.RiskStatistics
	Items       []datastore.Item
	GeneratedAt time.Time
}

// BuildReport assembles the report data for a project. Statistics come
// from a short-lived cache; items are always read fresh so a report
// never shows a verdict the statistics disagree with by more than the
// cache TTL.
func (s *Service) BuildReport(projectID uint) (*Report, error) {
	project, err := s.store.GetProject(projectID)
	if err != nil {
		return nil, err
	}

	stats, err := s.projectStatistics(projectID)
	if err != nil {
		return nil, err
	}

	items, err := s.store.GetProjectItemsByRisk(projectID)
	if err != nil {
		return nil, err
	}

	return &Report{
		Project:     project,
		Statistics:  stats,
		Items:       items,
		GeneratedAt: time.Now(),
	}, nil
}

func (s *Service) projectStatistics(projectID uint) (datastore.RiskStatistics, error) {
	key := fmt.Sprintf("stats:%d", projectID)
	if cached, found := s.cache.Get(key); found {
		if stats, ok := cached.(datastore.RiskStatistics); ok {
			return stats, nil
		}
	}
	stats, err := s.store.ProjectRiskStatistics(projectID)
	if err != nil {
		return datastore.RiskStatistics{}, err
	}
	s.cache.Set(key, stats, gocache.DefaultExpiration)
	return stats, nil
}

// InvalidateStatistics drops the cached statistics for a project. Called
// after mutations that change item verdicts.
func (s *Service) InvalidateStatistics(projectID uint) {
	s.cache.Delete(fmt.Sprintf("stats:%d", projectID))
}

// Markdown renders the report as a Markdown document.
func (s *Service) Markdown(projectID uint) (string, error) {
	report, err := s.BuildReport(projectID)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Ethics Audit Report: %s\n\n", report.Project.Name)
	if report.Project.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", report.Project.Description)
	}
	fmt.Fprintf(&b, "Generated: %s\n\n", report.GeneratedAt.Format(time.RFC1123))

	st := report.Statistics
	b.WriteString("## Summary\n\n")
	b.WriteString("| Metric | Count |\n|---|---|\n")
	fmt.Fprintf(&b, "| Total items | %d |\n", st.Total)
	fmt.Fprintf(&b, "| Critical risk | %d |\n", st.Critical)
	fmt.Fprintf(&b, "| High risk | %d |\n", st.High)
	fmt.Fprintf(&b, "| Medium risk | %d |\n", st.Medium)
	fmt.Fprintf(&b, "| Low risk | %d |\n", st.Low)
	fmt.Fprintf(&b, "| Pending audit | %d |\n", st.Pending)
	fmt.Fprintf(&b, "| Failed audit | %d |\n", st.Failed)
	fmt.Fprintf(&b, "| Requires human review | %d |\n\n", st.RequiresReview)

	b.WriteString("## Items\n\n")
	if len(report.Items) == 0 {
		b.WriteString("No items.\n")
		return b.String(), nil
	}

	for i := range report.Items {
		item := &report.Items[i]
		fmt.Fprintf(&b, "### %s\n\n", item.Title)
		fmt.Fprintf(&b, "- Status: %s\n", item.Status)
		if item.RiskScore != nil && item.RiskLevel != nil {
			fmt.Fprintf(&b, "- Risk: %s (%d/100)\n", *item.RiskLevel, *item.RiskScore)
		}
		if item.RequiresHumanReview {
			b.WriteString("- **Requires human review**\n")
		}
		if item.RiskSummary != nil && *item.RiskSummary != "" {
			fmt.Fprintf(&b, "\n%s\n", *item.RiskSummary)
		}
		if len(item.RiskBreakdown) > 0 {
			b.WriteString("\n| Category | Score | Issues |\n|---|---|---|\n")
			for _, category := range categoryOrder(item) {
				cs := item.RiskBreakdown[category]
				fmt.Fprintf(&b, "| %s | %d | %s |\n",
					category, cs.Score, strings.Join(cs.Issues, "; "))
			}
		}
		if len(item.MitigationSuggestions) > 0 {
			b.WriteString("\nSuggested mitigations:\n\n")
			for _, m := range item.MitigationSuggestions {
				fmt.Fprintf(&b, "- %s\n", m)
			}
		}
		b.WriteString("\n")
	}

	s.logger.Info("markdown report generated",
		"project_id", projectID,
		"items", len(report.Items))
	return b.String(), nil
}

// categoryOrder returns the breakdown categories sorted by descending
// score so the worst findings lead the table.
func categoryOrder(item *datastore.Item) []string {
	names := make([]string, 0, len(item.RiskBreakdown))
	for name := range item.RiskBreakdown {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		si := item.RiskBreakdown[names[i]].Score
		sj := item.RiskBreakdown[names[j]].Score
		if si != sj {
			return si > sj
		}
		return names[i] < names[j]
	})
	return names
}
