// Package inference turns an intermediate table into a typed table.
//
// A Strategy decides the column layout:
//
//	SingleColumn    one "Extracted Text" column, one row per line
//	SingleCell      the whole text in one cell
//	AutoSplit       lines split on tabs, runs of 2+ spaces or a delimiter;
//	                the column count is the most frequent cell count
//	DeclaredSchema  the recognizer's header, verbatim
//	ManualSchema    caller supplied names, rows truncated or padded
//
// Under AutoSplit rows with more cells than the dominant count have their
// trailing cells merged into the last column. OverflowWiden switches to the
// widest row instead. Column kinds are inferred from the values, and the
// "S.No." serial column is prepended whenever the table has rows.
package inference
