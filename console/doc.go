// Package console runs the interactive question loop on top of a query
// service.
//
// One line is read per iteration. A blank line ends the session. The
// following inputs are reserved:
//
//	x                  run the predicted next query
//	_...               record feedback through a follow-up prompt
//	fact: <text>       remember a fact
//	include: <text>    remember an inclusion preference
//	exclude: <text>    remember an exclusion preference
//	list               list the most recent stored records
//
// Every other line is a question. In ModeChat the answer is generated and
// streamed; in ModeAgent the matching records above the display threshold
// are printed.
package console
