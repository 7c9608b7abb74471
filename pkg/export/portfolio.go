package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// PortfolioStudent carries the identity block rendered in the header.
type PortfolioStudent struct {
	FullName      string
	StudentNumber string
	Department    string
	Year          int
	Semester      int
	CGPA          float64
}

// PortfolioActivity is a single activity entry in the rendered document.
type PortfolioActivity struct {
	Title            string
	Category         string
	Status           string
	Organizer        string
	Location         string
	StartDate        time.Time
	EndDate          time.Time
	DurationDays     int
	Credits          float64
	Score            *float64
	Grade            string
	Description      string
	LearningOutcomes string
	ApprovedByName   string
}

// PortfolioCategory aggregates per-category counts and credits.
type PortfolioCategory struct {
	Name    string
	Count   int
	Credits float64
}

// PortfolioDocument is the full input for the rendered portfolio.
type PortfolioDocument struct {
	Student         PortfolioStudent
	GeneratedAt     time.Time
	TotalActivities int
	TotalCredits    float64
	AverageScore    float64
	Categories      []PortfolioCategory
	Activities      []PortfolioActivity
	Skills          []string
}

// PortfolioRenderer renders a student portfolio into a PDF document.
type PortfolioRenderer struct{}

// NewPortfolioRenderer constructs a portfolio renderer.
func NewPortfolioRenderer() *PortfolioRenderer {
	return &PortfolioRenderer{}
}

// Render produces the portfolio PDF bytes.
func (r *PortfolioRenderer) Render(doc PortfolioDocument) ([]byte, error) {
	if doc.Student.FullName == "" {
		return nil, fmt.Errorf("portfolio requires a student name")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 20, 15)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	r.renderHeader(pdf, doc)
	r.renderSummary(pdf, doc)
	r.renderCategoryBreakdown(pdf, doc.Categories)
	r.renderActivities(pdf, doc)
	r.renderSkills(pdf, doc.Skills)
	r.renderFooter(pdf, doc.GeneratedAt)

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render portfolio pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *PortfolioRenderer) renderHeader(pdf *gofpdf.Fpdf, doc PortfolioDocument) {
	pdf.SetFillColor(102, 126, 234)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Arial", "B", 20)
	pdf.CellFormat(0, 14, doc.Student.FullName, "", 1, "L", true, 0, "")

	pdf.SetFont("Arial", "", 10)
	identity := fmt.Sprintf("Student ID: %s   Department: %s   Year: %d   Semester: %d   CGPA: %.2f",
		orNA(doc.Student.StudentNumber), orNA(doc.Student.Department),
		doc.Student.Year, doc.Student.Semester, doc.Student.CGPA)
	pdf.CellFormat(0, 8, identity, "", 1, "L", true, 0, "")
	pdf.CellFormat(0, 7, fmt.Sprintf("Generated on: %s   Total Activities: %d",
		doc.GeneratedAt.Format("02 Jan 2006"), doc.TotalActivities), "", 1, "L", true, 0, "")

	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(6)
}

func (r *PortfolioRenderer) renderSummary(pdf *gofpdf.Fpdf, doc PortfolioDocument) {
	r.sectionTitle(pdf, "Portfolio Summary")

	tiles := []struct {
		value string
		label string
	}{
		{fmt.Sprintf("%d", doc.TotalActivities), "Total Activities"},
		{trimFloat(doc.TotalCredits), "Total Credits"},
		{fmt.Sprintf("%d", len(doc.Categories)), "Categories"},
		{fmt.Sprintf("%.0f%%", doc.AverageScore), "Average Score"},
	}

	tileWidth := 180.0 / float64(len(tiles))
	pdf.SetFont("Arial", "B", 14)
	for _, tile := range tiles {
		pdf.CellFormat(tileWidth, 10, tile.value, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 9)
	for _, tile := range tiles {
		pdf.CellFormat(tileWidth, 7, tile.label, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(12)
}

func (r *PortfolioRenderer) renderCategoryBreakdown(pdf *gofpdf.Fpdf, categories []PortfolioCategory) {
	if len(categories) == 0 {
		return
	}
	r.sectionTitle(pdf, "Activities by Category")

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(90, 8, "Category", "1", 0, "L", false, 0, "")
	pdf.CellFormat(45, 8, "Activities", "1", 0, "C", false, 0, "")
	pdf.CellFormat(45, 8, "Credits", "1", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	for _, category := range categories {
		pdf.CellFormat(90, 7, FormatCategoryName(category.Name), "1", 0, "L", false, 0, "")
		pdf.CellFormat(45, 7, fmt.Sprintf("%d", category.Count), "1", 0, "C", false, 0, "")
		pdf.CellFormat(45, 7, trimFloat(category.Credits), "1", 1, "C", false, 0, "")
	}
	pdf.Ln(8)
}

func (r *PortfolioRenderer) renderActivities(pdf *gofpdf.Fpdf, doc PortfolioDocument) {
	if len(doc.Activities) == 0 {
		return
	}
	r.sectionTitle(pdf, "Activities Details")

	grouped := make(map[string][]PortfolioActivity)
	order := make([]string, 0)
	for _, activity := range doc.Activities {
		if _, seen := grouped[activity.Category]; !seen {
			order = append(order, activity.Category)
		}
		grouped[activity.Category] = append(grouped[activity.Category], activity)
	}

	for _, category := range order {
		pdf.SetFont("Arial", "B", 12)
		pdf.SetTextColor(102, 126, 234)
		pdf.CellFormat(0, 9, FormatCategoryName(category), "", 1, "L", false, 0, "")
		pdf.SetTextColor(0, 0, 0)

		for _, activity := range grouped[category] {
			r.renderActivityCard(pdf, activity)
		}
		pdf.Ln(3)
	}
}

func (r *PortfolioRenderer) renderActivityCard(pdf *gofpdf.Fpdf, activity PortfolioActivity) {
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(150, 8, activity.Title, "", 0, "L", false, 0, "")
	pdf.SetFont("Arial", "B", 8)
	pdf.CellFormat(30, 8, strings.ToUpper(activity.Status), "1", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 9)
	dates := fmt.Sprintf("%s - %s (%s)", activity.StartDate.Format("02 Jan 2006"),
		activity.EndDate.Format("02 Jan 2006"), durationText(activity.DurationDays))
	pdf.CellFormat(0, 6, "Organizer: "+activity.Organizer+"    Duration: "+dates, "", 1, "L", false, 0, "")

	detail := "Credits: " + trimFloat(activity.Credits)
	if activity.Score != nil {
		detail += fmt.Sprintf("    Score: %.0f%%", *activity.Score)
	}
	if activity.Grade != "" {
		detail += "    Grade: " + activity.Grade
	}
	if activity.Location != "" {
		detail += "    Location: " + activity.Location
	}
	pdf.CellFormat(0, 6, detail, "", 1, "L", false, 0, "")

	if activity.Description != "" {
		pdf.MultiCell(0, 5, activity.Description, "", "L", false)
	}
	if activity.LearningOutcomes != "" {
		pdf.SetFont("Arial", "I", 9)
		pdf.MultiCell(0, 5, "Learning Outcomes: "+activity.LearningOutcomes, "", "L", false)
		pdf.SetFont("Arial", "", 9)
	}
	if activity.ApprovedByName != "" {
		pdf.SetFont("Arial", "I", 8)
		pdf.CellFormat(0, 5, "Approved by: "+activity.ApprovedByName, "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 9)
	}
	pdf.Ln(4)
}

func (r *PortfolioRenderer) renderSkills(pdf *gofpdf.Fpdf, skills []string) {
	if len(skills) == 0 {
		return
	}
	r.sectionTitle(pdf, "Skills Gained")
	pdf.SetFont("Arial", "", 10)
	pdf.MultiCell(0, 6, strings.Join(skills, "  |  "), "", "L", false)
	pdf.Ln(6)
}

func (r *PortfolioRenderer) renderFooter(pdf *gofpdf.Fpdf, generatedAt time.Time) {
	pdf.Ln(4)
	pdf.SetFont("Arial", "I", 8)
	pdf.SetTextColor(108, 117, 125)
	pdf.CellFormat(0, 5, "This portfolio is generated from the Smart Student Hub system.", "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 5, "All approved activities listed have been verified by faculty members.", "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 5, "Generated on: "+generatedAt.Format(time.RFC1123), "", 1, "C", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
}

func (r *PortfolioRenderer) sectionTitle(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Arial", "B", 14)
	pdf.SetTextColor(44, 62, 80)
	pdf.CellFormat(0, 10, title, "B", 1, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(2)
}

// FormatCategoryName converts an enum value like "extracurricular" or
// "department_summary" into a display title.
func FormatCategoryName(raw string) string {
	parts := strings.Split(raw, "_")
	for i, part := range parts {
		if part == "" {
			continue
		}
		parts[i] = strings.ToUpper(part[:1]) + part[1:]
	}
	return strings.Join(parts, " ")
}

func durationText(days int) string {
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}

func trimFloat(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
