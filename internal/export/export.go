package export

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"newsbrief/internal/analytics"
	"newsbrief/internal/search"
	"newsbrief/internal/services"
)

// ErrUnsupportedFormat is returned for any format other than json, csv or xml.
type ErrUnsupportedFormat struct {
	Format string
}

func (e ErrUnsupportedFormat) Error() string {
	return fmt.Sprintf("unsupported format: %s", e.Format)
}

// Exporter assembles data from the stores and renders it as JSON, CSV, XML
// or a ZIP bundle. CSV output is a flattened, lossy subset; JSON carries the
// full structure.
type Exporter struct {
	auth      *services.AuthService
	analytics *analytics.Store
	search    *search.Index
	log       *zap.Logger
}

func NewExporter(auth *services.AuthService, an *analytics.Store, ix *search.Index, log *zap.Logger) *Exporter {
	return &Exporter{auth: auth, analytics: an, search: ix, log: log}
}

// ExportUserData renders a user's preferences, reading history and reading
// stats in the requested format.
func (e *Exporter) ExportUserData(userID uint, format string) ([]byte, string, error) {
	prefs, err := e.auth.GetAllPreferences(userID)
	if err != nil {
		return nil, "", err
	}
	history, err := e.auth.GetReadingHistory(userID, 1000)
	if err != nil {
		return nil, "", err
	}
	stats, err := e.auth.GetReadingStats(userID, 365)
	if err != nil {
		return nil, "", err
	}

	data := map[string]interface{}{
		"user_id":         userID,
		"export_date":     time.Now().Format(time.RFC3339),
		"preferences":     prefs,
		"reading_history": history,
		"reading_stats":   stats,
	}

	switch format {
	case "json":
		out, err := marshalJSON(data)
		return out, "application/json", err
	case "csv":
		var buf bytes.Buffer
		w := csv.NewWriter(&buf)
		w.Write([]string{"Article ID", "Title", "Category", "Read At", "Reading Time"})
		for _, h := range history {
			w.Write([]string{
				h.ArticleID,
				h.ArticleTitle,
				h.Category,
				h.ReadAt.Format(time.RFC3339),
				strconv.Itoa(h.ReadingTime),
			})
		}
		w.Flush()
		return buf.Bytes(), "text/csv", w.Error()
	case "xml":
		out, err := marshalXML("user_data", data)
		return out, "application/xml", err
	default:
		return nil, "", ErrUnsupportedFormat{Format: format}
	}
}

// ExportAnalytics renders sentiment trends, category analytics, trending
// topics and search analytics for the period.
func (e *Exporter) ExportAnalytics(days int, format string) ([]byte, string, error) {
	data, err := e.analyticsSnapshot(days)
	if err != nil {
		return nil, "", err
	}

	switch format {
	case "json":
		out, err := marshalJSON(data)
		return out, "application/json", err
	case "csv":
		trends, _ := data["sentiment_trends"].(map[string]analytics.SentimentCounts)
		out, err := sentimentCSV(trends)
		return out, "text/csv", err
	case "xml":
		out, err := marshalXML("analytics_data", data)
		return out, "application/xml", err
	default:
		return nil, "", ErrUnsupportedFormat{Format: format}
	}
}

// ExportArticles renders indexed articles matching the filters.
func (e *Exporter) ExportArticles(filters search.Filters, format string) ([]byte, string, error) {
	result, err := e.search.Search("", filters, "date", 1000, 0)
	if err != nil {
		return nil, "", err
	}

	data := map[string]interface{}{
		"export_date": time.Now().Format(time.RFC3339),
		"filters":     filters,
		"articles":    result.Articles,
	}

	switch format {
	case "json":
		out, err := marshalJSON(data)
		return out, "application/json", err
	case "csv":
		var buf bytes.Buffer
		w := csv.NewWriter(&buf)
		w.Write([]string{"ID", "Title", "Category", "Source", "Published At", "Sentiment", "Reliability"})
		for _, a := range result.Articles {
			published := ""
			if a.PublishedAt != nil {
				published = a.PublishedAt.Format(time.RFC3339)
			}
			w.Write([]string{
				a.ArticleID, a.Title, a.Category, a.Source,
				published, a.Sentiment, strconv.Itoa(a.ReliabilityScore),
			})
		}
		w.Flush()
		return buf.Bytes(), "text/csv", w.Error()
	case "xml":
		out, err := marshalXML("articles_data", data)
		return out, "application/xml", err
	default:
		return nil, "", ErrUnsupportedFormat{Format: format}
	}
}

// FullBackup bundles a year of analytics into a ZIP with JSON, CSV and XML
// renderings plus a metadata file.
func (e *Exporter) FullBackup(includeUsers bool) ([]byte, error) {
	snapshot, err := e.analyticsSnapshot(365)
	if err != nil {
		return nil, err
	}

	backup := map[string]interface{}{
		"backup_date": time.Now().Format(time.RFC3339),
		"version":     "1.0",
		"analytics":   snapshot,
	}
	if includeUsers {
		count, err := e.auth.CountUsers()
		if err != nil {
			return nil, err
		}
		backup["users"] = map[string]interface{}{"total_users": count}
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	backupJSON, err := marshalJSON(backup)
	if err != nil {
		return nil, err
	}
	if err := writeZipEntry(zw, "backup.json", backupJSON); err != nil {
		return nil, err
	}

	trends, _ := snapshot["sentiment_trends"].(map[string]analytics.SentimentCounts)
	analyticsCSV, err := sentimentCSV(trends)
	if err != nil {
		return nil, err
	}
	if err := writeZipEntry(zw, "analytics.csv", analyticsCSV); err != nil {
		return nil, err
	}

	analyticsXML, err := marshalXML("analytics", snapshot)
	if err != nil {
		return nil, err
	}
	if err := writeZipEntry(zw, "analytics.xml", analyticsXML); err != nil {
		return nil, err
	}

	metadata := map[string]interface{}{
		"created_by":  "newsbrief",
		"export_date": time.Now().Format(time.RFC3339),
		"file_count":  3,
		"formats":     []string{"json", "csv", "xml"},
	}
	metadataJSON, err := marshalJSON(metadata)
	if err != nil {
		return nil, err
	}
	if err := writeZipEntry(zw, "metadata.json", metadataJSON); err != nil {
		return nil, err
	}

	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (e *Exporter) analyticsSnapshot(days int) (map[string]interface{}, error) {
	trends, err := e.analytics.SentimentTrends(days)
	if err != nil {
		return nil, err
	}
	categories, err := e.analytics.CategoryAnalytics()
	if err != nil {
		return nil, err
	}
	topics, err := e.analytics.TrendingTopics(days)
	if err != nil {
		return nil, err
	}
	searchStats, err := e.search.GetSearchAnalytics(days)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"export_date":        time.Now().Format(time.RFC3339),
		"period_days":        days,
		"sentiment_trends":   trends,
		"category_analytics": categories,
		"trending_topics":    topics,
		"search_analytics":   searchStats,
	}, nil
}

func marshalJSON(data interface{}) ([]byte, error) {
	return json.MarshalIndent(data, "", "  ")
}

func sentimentCSV(trends map[string]analytics.SentimentCounts) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Write([]string{"Date", "Positive", "Negative", "Neutral"})

	dates := make([]string, 0, len(trends))
	for date := range trends {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	for _, date := range dates {
		c := trends[date]
		w.Write([]string{
			date,
			strconv.FormatInt(c.Positive, 10),
			strconv.FormatInt(c.Negative, 10),
			strconv.FormatInt(c.Neutral, 10),
		})
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func writeZipEntry(zw *zip.Writer, name string, data []byte) error {
	f, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = f.Write(data)
	return err
}

// marshalXML renders arbitrary data as tag-per-key XML with <item> elements
// for list entries. It round-trips through JSON so struct field tags decide
// element names and map keys come out sorted.
func marshalXML(rootName string, data interface{}) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString("<" + rootName + ">")
	if err := writeXMLValue(&buf, generic); err != nil {
		return nil, err
	}
	buf.WriteString("</" + rootName + ">")
	return buf.Bytes(), nil
}

func writeXMLValue(buf *bytes.Buffer, value interface{}) error {
	switch v := value.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			tag := xmlTag(k)
			buf.WriteString("<" + tag + ">")
			if err := writeXMLValue(buf, v[k]); err != nil {
				return err
			}
			buf.WriteString("</" + tag + ">")
		}
	case []interface{}:
		for _, item := range v {
			buf.WriteString("<item>")
			if err := writeXMLValue(buf, item); err != nil {
				return err
			}
			buf.WriteString("</item>")
		}
	case nil:
	case float64:
		buf.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
	case bool:
		buf.WriteString(strconv.FormatBool(v))
	default:
		if err := xml.EscapeText(buf, []byte(fmt.Sprint(v))); err != nil {
			return err
		}
	}
	return nil
}

// xmlTag makes a JSON key safe as an element name; keys here are ASCII
// snake_case but dates like "2026-08-31" show up as map keys too.
func xmlTag(key string) string {
	out := make([]byte, 0, len(key))
	for i := 0; i < len(key); i++ {
		c := key[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '_':
			out = append(out, c)
		case (c >= '0' && c <= '9') || c == '-' || c == '.':
			if len(out) == 0 {
				out = append(out, '_')
			}
			out = append(out, c)
		default:
			out = append(out, '_')
		}
	}
	if len(out) == 0 {
		return "_"
	}
	return string(out)
}
