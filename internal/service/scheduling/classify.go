package scheduling

// Classify decides what happens to occ given the bookings already present at
// its start instant. The first matching rule wins: an identical session is a
// duplicate, any booking of the tutor is a tutor collision, any booking
// holding a roster student is a student collision, otherwise the occurrence
// is created.
func Classify(occ Occurrence, spec RecurrenceSpec, roster Roster, index *BookingIndex) PlanLine {
	existing := index.At(occ.StartAt)

	for _, b := range existing {
		if isSameSession(b, spec) {
			return DuplicateLine{Occurrence: occ, ExistingID: b.ID}
		}
	}
	for _, b := range existing {
		if b.TutorID == spec.TutorID {
			return ConflictLine{Occurrence: occ, Reason: ReasonTutorStartCollision, ExistingID: b.ID}
		}
	}
	for _, b := range existing {
		if roster.Overlaps(b.StudentIDs) {
			return ConflictLine{Occurrence: occ, Reason: ReasonStudentStartCollision, ExistingID: b.ID}
		}
	}
	return CreateLine{Occurrence: occ, Roster: roster}
}

// isSameSession matches the booking identity enforced by the unique indexes.
func isSameSession(b *ExistingBooking, spec RecurrenceSpec) bool {
	if b.CenterID != spec.CenterID || b.TutorID != spec.TutorID || b.SessionType != spec.SessionType {
		return false
	}
	if spec.SessionType.GroupBased() {
		return b.GroupID != nil && spec.GroupID != nil && *b.GroupID == *spec.GroupID
	}
	if spec.StudentID == nil {
		return false
	}
	return Roster(b.StudentIDs).Contains(*spec.StudentID)
}
