// Package brief defines the Implementation Brief aggregate and its wire form.
//
// This package contains type definitions, the JSON codec used at the record
// store boundary, and document validation. Every other internal package
// imports brief; brief imports nothing internal.
//
// Key design constraints:
//   - Absent optionals are written as null, never omitted (the store replaces
//     whole documents and does not merge).
//   - FieldSources == nil means "no ledger yet" (a legacy brief); an empty,
//     non-nil map means "ledger present, nothing tracked".
//   - No floats in brief content; budget bounds are integers and intake
//     numbers keep their literal text.
//   - Record metadata keys are snake_case; content keys equal the field-path
//     segments that address them (businessContext, successCriteria, ...).
package brief
