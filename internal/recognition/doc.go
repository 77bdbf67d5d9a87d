// Package recognition adapts recognition engine output into an intermediate
// table.
//
// Engines produce a RawResult, which is either free-form text (lines of
// positioned word tokens) or structured records. Normalize turns either into
// an IntermediateTable: rows of string cells and an optional header. Cell
// splitting of text lines is left to the inference package.
//
// Recognizers:
//
//	OCRRecognizer     local Tesseract (build tag "ocr")
//	PDFRecognizer     text layer of digital PDFs
//	VisionRecognizer  OpenAI compatible vision model answering with JSON
//	TextRecognizer    uploads that already are text or JSON
package recognition
