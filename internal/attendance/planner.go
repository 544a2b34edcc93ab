package attendance

// PlanShifts returns the shifts to write for date given its absence record.
//
// Fridays always get the single continuous shift: a half-day absence does not
// carve the Friday block. Monday to Thursday start from morning + afternoon and
// drop the half covered by a half-day absence. A full-day absence yields an
// empty plan; callers skip those dates before planning.
func PlanShifts(date Date, rec AbsenceRecord, s Schedule) ShiftPlan {
	if rec.Kind == FullDay {
		return nil
	}
	if date.IsFriday() {
		return ShiftPlan{s.Friday}
	}

	plan := make(ShiftPlan, 0, 2)
	if rec.Kind != HalfMorning {
		plan = append(plan, s.Morning)
	}
	if rec.Kind != HalfAfternoon {
		plan = append(plan, s.Afternoon)
	}
	return plan
}
