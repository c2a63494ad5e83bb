// Package edit applies anchor-relative edits to an ir.Set so that the down
// sequence always receives the mirrored edit of the up sequence.
//
// The down sequence performs the rollback and runs the effects of the
// upgrade in reverse. An edit placed immediately before the commit marker on
// the way up is therefore placed immediately after it on the way down: the
// anchor side and the before/after sense flip together. Guards mirror the
// same way (loaded-before on up is unloaded-after on down).
//
// Append and AppendAfterPointOfNoReturn have no inverse; they apply the same
// bare operation to both sides.
package edit
