package testutil

// InvoiceText is OCR-style output of a small invoice: a header line and
// three item lines with column gaps of two or more spaces.
const InvoiceText = `Item        Qty   Weight   Price
Pen          2     0.25    $10.00
Notebook     1     1.20    $1.49
Ink Bottle   3             $0.00
`

// InvoiceJSON is a structured recognition result for the same invoice
const InvoiceJSON = `{
  "columns": ["Item", "Qty", "Price"],
  "rows": [
    ["Pen", "2", "$10.00"],
    ["Notebook", "1", "$1.49"]
  ]
}`

// InvoiceRecordsJSON is the record-list shape of a structured result
const InvoiceRecordsJSON = `{
  "records": [
    {"Item": "Pen", "Qty": 2, "Price": "$10.00"},
    {"Item": "Notebook", "Qty": 1, "Price": "$1.49"}
  ]
}`
