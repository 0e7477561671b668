package catalog

import "time"

// SeedDocuments returns the sample library shown on first launch.
func SeedDocuments(now time.Time) []Document {
	day := 24 * time.Hour
	opened := now.Add(-2 * day)

	return []Document{
		{
			ID:         "seed-intro-economics",
			Title:      "Introduction to Economics.pdf",
			UploadDate: now.Add(-7 * day),
			Status:     StatusSynced,
			Type:       "pdf",
			PageCount:  42,
			LastOpened: &opened,
			FileSize:   2_457_600,
			MIMEType:   "application/pdf",
		},
		{
			ID:         "seed-lab-results",
			Title:      "Lab Results Q3.csv",
			UploadDate: now.Add(-3 * day),
			Status:     StatusSynced,
			Type:       "csv",
			PageCount:  1,
			FileSize:   48_213,
			MIMEType:   "text/csv",
		},
		{
			ID:         "seed-study-plan",
			Title:      "Study Plan.xlsx",
			UploadDate: now.Add(-1 * day),
			Status:     StatusSynced,
			Type:       "xlsx",
			PageCount:  3,
			FileSize:   91_530,
			MIMEType:   "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		},
	}
}
