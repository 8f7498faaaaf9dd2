package store

func strPtr(s string) *string { return &s }

// TestParticipants are the fixture users added by SeedTestParticipants.
var TestParticipants = []Participant{
	{UserID: "10001", DisplayName: "Test_Ivan", Handle: "TestIvan", Wishlist: strPtr("A new keyboard and a mug with a cat on it.")},
	{UserID: "10002", DisplayName: "Test_Maria", Handle: "TestMaria", Wishlist: strPtr("A Python book and a drawing set.")},
	{UserID: "10003", DisplayName: "Test_Petr", Handle: "TestPetr", Wishlist: strPtr("A smart speaker and a warm sweater.")},
	{UserID: "10004", DisplayName: "Test_Anna", Handle: "TestAnna", Wishlist: strPtr("Wireless headphones and a cinema ticket.")},
}

// SeedTestParticipants adds TestParticipants under dummy conversation ids
// ("test_<user_id>"), skipping user ids that are already registered. It
// returns how many records were added.
func SeedTestParticipants(s ParticipantStore) (int, error) {
	doc, err := s.LoadParticipants()
	if err != nil {
		return 0, err
	}

	added := 0
	for _, p := range TestParticipants {
		if _, _, exists := doc.FindByUserID(p.UserID); exists {
			continue
		}
		doc.Participants["test_"+p.UserID] = p
		added++
	}
	if added == 0 {
		return 0, nil
	}
	if err := s.SaveParticipants(doc); err != nil {
		return 0, err
	}
	return added, nil
}
