package reporting

import (
	"fmt"
	"io"
	"strconv"

	"github.com/jung-kurt/gofpdf"
	"github.com/tealeg/xlsx"

	"github.com/elderease/elderease/internal/domain/medication"
)

// Export formats accepted by the report endpoint.
const (
	FormatJSON = "json"
	FormatXLSX = "xlsx"
	FormatPDF  = "pdf"
)

const (
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypePDF  = "application/pdf"
)

// WriteXLSX writes the report as a workbook with one sheet per section.
func WriteXLSX(w io.Writer, r *Report) error {
	file := xlsx.NewFile()

	patients, err := file.AddSheet("Patients")
	if err != nil {
		return fmt.Errorf("add patients sheet: %w", err)
	}
	header(patients, "ID", "Name", "Age", "Gender", "Chief Complaint")

	meds, err := file.AddSheet("Medications")
	if err != nil {
		return fmt.Errorf("add medications sheet: %w", err)
	}
	header(meds, "Patient ID", "Medication ID", "Name", "Dose", "Timing", "Type", "Food Relation", "Given Today")

	records, err := file.AddSheet("Daily Records")
	if err != nil {
		return fmt.Errorf("add records sheet: %w", err)
	}
	header(records, "Patient ID", "Date", "Weight", "BP", "Notes")

	for _, e := range r.Patients {
		row := patients.AddRow()
		row.AddCell().SetInt64(e.Patient.ID)
		row.AddCell().SetString(e.Patient.Name)
		row.AddCell().SetInt(e.Patient.Age)
		row.AddCell().SetString(e.Patient.Gender)
		row.AddCell().SetString(deref(e.Patient.ChiefComplaint))

		for _, m := range e.Medications {
			row := meds.AddRow()
			row.AddCell().SetInt64(e.Patient.ID)
			row.AddCell().SetInt64(m.ID)
			row.AddCell().SetString(m.Name)
			row.AddCell().SetString(m.Dose)
			row.AddCell().SetString(deref(m.Timing))
			row.AddCell().SetString(m.Type)
			row.AddCell().SetString(deref(m.FoodRelation))
			row.AddCell().SetBool(m.IsGivenToday)
		}

		for _, d := range e.DailyRecords {
			row := records.AddRow()
			row.AddCell().SetInt64(e.Patient.ID)
			row.AddCell().SetString(d.Date)
			if d.Weight != nil {
				row.AddCell().SetFloat(*d.Weight)
			} else {
				row.AddCell()
			}
			row.AddCell().SetString(deref(d.BP))
			row.AddCell().SetString(deref(d.Notes))
		}
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func header(sheet *xlsx.Sheet, titles ...string) {
	row := sheet.AddRow()
	for _, t := range titles {
		cell := row.AddCell()
		cell.SetString(t)
		style := cell.GetStyle()
		style.Font.Bold = true
	}
}

// WritePDF writes the report as an A4 document, one section per patient.
func WritePDF(w io.Writer, r *Report) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 20)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Arial", "I", 8)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, tr("Care report "+r.FromDate+" to "+r.ToDate), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	if len(r.Patients) == 0 {
		pdf.SetFont("Arial", "", 11)
		pdf.CellFormat(0, 8, "No patients", "", 1, "L", false, 0, "")
	}

	for _, e := range r.Patients {
		pdf.SetFont("Arial", "B", 13)
		title := fmt.Sprintf("%s (#%d), %d, %s", e.Patient.Name, e.Patient.ID, e.Patient.Age, e.Patient.Gender)
		pdf.CellFormat(0, 9, tr(title), "B", 1, "L", false, 0, "")
		if e.Patient.ChiefComplaint != nil && *e.Patient.ChiefComplaint != "" {
			pdf.SetFont("Arial", "I", 10)
			pdf.MultiCell(0, 6, tr(*e.Patient.ChiefComplaint), "", "L", false)
		}

		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(0, 8, "Medications", "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		if len(e.Medications) == 0 {
			pdf.CellFormat(0, 6, "None", "", 1, "L", false, 0, "")
		}
		for _, m := range e.Medications {
			given := "pending"
			if m.IsGivenToday {
				given = "given today"
			}
			line := fmt.Sprintf("%s, %s, %s (%s)", m.Name, m.Dose, medication.TimingDisplay(m.Timing, m.FoodRelation), given)
			pdf.CellFormat(0, 6, tr(line), "", 1, "L", false, 0, "")
		}

		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(0, 8, "Daily records", "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		if len(e.DailyRecords) == 0 {
			pdf.CellFormat(0, 6, "None in range", "", 1, "L", false, 0, "")
		}
		for _, d := range e.DailyRecords {
			weight := "-"
			if d.Weight != nil {
				weight = strconv.FormatFloat(*d.Weight, 'f', -1, 64) + " kg"
			}
			bp := "-"
			if d.BP != nil {
				bp = *d.BP
			}
			pdf.CellFormat(25, 6, d.Date, "", 0, "L", false, 0, "")
			pdf.CellFormat(30, 6, tr(weight), "", 0, "L", false, 0, "")
			pdf.CellFormat(30, 6, tr("BP "+bp), "", 0, "L", false, 0, "")
			pdf.MultiCell(0, 6, tr(deref(d.Notes)), "", "L", false)
		}
		pdf.Ln(4)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
