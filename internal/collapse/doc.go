// Package collapse reduces 32-bit audio fingerprints to 16-bit keys.
//
// Six strategies are available. The OR based ones (OrPairs16, OrHalf16) never
// separate raw-equal prints and are lenient towards single bit errors. The
// selecting ones keep half of the bits and are cheaper but stricter.
//
// The collapsed value is used directly as an index into a 65536 entry table.
package collapse
