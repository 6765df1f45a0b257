package services

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestExportServiceCSVByStudyType(t *testing.T) {
	svc := NewExportService(&resultStubStore{snap: cardSortSnapshot()})
	res, err := svc.Export(ExportParams{StudyID: "S1", Format: "csv"})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if res.Filename != "study-S1-results.csv" {
		t.Fatalf("filename = %q", res.Filename)
	}
	if res.ContentType != "text/csv; charset=utf-8" {
		t.Fatalf("content type = %q", res.ContentType)
	}
	if !strings.HasPrefix(string(res.Data), "Card,Participant 1") {
		t.Fatalf("csv header = %q", strings.SplitN(string(res.Data), "\n", 2)[0])
	}
}

func TestExportServiceDefaultsToCSV(t *testing.T) {
	svc := NewExportService(&resultStubStore{snap: firstClickSnapshot()})
	res, err := svc.Export(ExportParams{StudyID: "S3"})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if !strings.HasPrefix(string(res.Data), "Participant,X (%)") {
		t.Fatalf("csv header = %q", strings.SplitN(string(res.Data), "\n", 2)[0])
	}
}

func TestExportServiceJSON(t *testing.T) {
	svc := NewExportService(&resultStubStore{snap: treeTestSnapshot()})
	res, err := svc.Export(ExportParams{StudyID: "S2", Format: "json"})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if res.Filename != "study-S2-results.json" {
		t.Fatalf("filename = %q", res.Filename)
	}
	var out StudyExport
	if err := json.Unmarshal(res.Data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.StudyID != "S2" || len(out.Participants) != 3 {
		t.Fatalf("export = %+v", out)
	}
}

func TestExportServiceRejectsUnknownFormat(t *testing.T) {
	svc := NewExportService(&resultStubStore{snap: cardSortSnapshot()})
	if _, err := svc.Export(ExportParams{StudyID: "S1", Format: "xlsx"}); err == nil {
		t.Fatalf("unknown format accepted")
	}
	if _, err := svc.Export(ExportParams{Format: "csv"}); err == nil {
		t.Fatalf("missing study id accepted")
	}
}

func TestExportServiceOwnership(t *testing.T) {
	snap := cardSortSnapshot()
	snap.Study.OwnerID = "u123"
	svc := NewExportService(&resultStubStore{snap: snap})
	if _, err := svc.Export(ExportParams{StudyID: "S1", OwnerID: "u999", Format: "csv"}); err == nil {
		t.Fatalf("foreign owner allowed to export")
	}
	if _, err := svc.Export(ExportParams{StudyID: "S1", OwnerID: "u123", Format: "csv"}); err != nil {
		t.Fatalf("owner export: %v", err)
	}
}
