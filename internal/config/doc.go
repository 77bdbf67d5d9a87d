// Package config loads the converter configuration.
//
// Values come from, in order of precedence:
//
//	1. Environment variables prefixed with IMG2XLSX_ (highest priority)
//	2. A YAML file: $IMG2XLSX_CONFIG, ./config.yaml or ./configs/config.yaml
//	3. The defaults declared in the struct tags (lowest priority)
//
// Variables follow the struct nesting:
//
//	IMG2XLSX_SERVER_PORT=8080
//	IMG2XLSX_INFERENCE_OVERFLOW=widen
//	IMG2XLSX_EXPORT_SHEET_NAME="Extracted Data"
//	IMG2XLSX_RECOGNITION_VISION_API_KEY=sk-...
//	IMG2XLSX_SHEETS_CREDENTIALS_FILE=/etc/img2xlsx/service-account.json
//
// Load validates the result; Default returns the same defaults without
// touching the environment and is what tests use.
package config
