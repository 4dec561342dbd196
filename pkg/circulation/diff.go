package circulation

// changedFields names, in declaration order, the fields that differ between
// two versions of a loan. Revision is bookkeeping and not reported.
func changedFields(before, after *Loan) []string {
	var out []string
	add := func(changed bool, name string) {
		if changed {
			out = append(out, name)
		}
	}
	add(before.State != after.State, "state")
	add(before.ItemPID != after.ItemPID, "item_pid")
	add(before.PatronPID != after.PatronPID, "patron_pid")
	add(before.DocumentPID != after.DocumentPID, "document_pid")
	add(!before.TransactionDate.Equal(after.TransactionDate), "transaction_date")
	add(!before.StartDate.Equal(after.StartDate), "start_date")
	add(!before.EndDate.Equal(after.EndDate), "end_date")
	add(!before.RequestDate.Equal(after.RequestDate), "request_date")
	add(!before.TransitDate.Equal(after.TransitDate), "transit_date")
	add(before.TransactionLocationPID != after.TransactionLocationPID, "transaction_location_pid")
	add(before.PickupLocationPID != after.PickupLocationPID, "pickup_location_pid")
	add(before.ItemLocationPID != after.ItemLocationPID, "item_location_pid")
	add(before.TransactionUserPID != after.TransactionUserPID, "transaction_user_pid")
	add(before.ExtensionCount != after.ExtensionCount, "extension_count")
	add(before.CancelReason != after.CancelReason, "cancel_reason")
	return out
}
