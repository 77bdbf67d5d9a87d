// Package exporter renders tables into spreadsheet documents.
//
// This package contains three main components:
//
// XLSXWriter: Excel workbook output via excelize. Integer columns use a whole
// number format, decimal columns "0.00", currency columns the column symbol
// with two decimals. Numeric columns are right-aligned and widths follow the
// widest header or value. An optional "Metadata" sheet records the source file,
// extraction date and image size.
//
// CSVWriter: CSV output with a UTF-8 BOM for Excel compatibility.
//
// Exporter: picks the writer for a Format and names the document
// <base>_<YYYYMMDD_HHMMSS>.<ext>.
//
// Example usage:
//
//	exp := exporter.New("", "", logger)
//	doc, err := exp.Export(tbl, exporter.FormatXLSX, &exporter.Metadata{SourceFile: "scan.png"})
//	err = os.WriteFile(doc.Filename, doc.Data, 0644)
package exporter
