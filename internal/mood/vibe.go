package mood

// Vibe returns a descriptive name for the profile's energy/valence quadrant.
//
// Quadrants:
//   - High Energy + High Valence = "Upbeat Party"
//   - High Energy + Low Valence  = "Intense & Dark"
//   - Low Energy  + High Valence = "Chill & Happy"
//   - Low Energy  + Low Valence  = "Reflective & Melancholy"
func (p Profile) Vibe() string {
	highEnergy := p.Energy > 0.6
	highValence := p.Valence > 0.5

	switch {
	case highEnergy && highValence:
		return "Upbeat Party"
	case highEnergy && !highValence:
		return "Intense & Dark"
	case !highEnergy && highValence:
		return "Chill & Happy"
	default:
		return "Reflective & Melancholy"
	}
}

// Description returns a one-line blurb for the profile's quadrant.
func (p Profile) Description() string {
	switch {
	case p.Energy > 0.6 && p.Valence > 0.5:
		return "High-energy, positive vibes - perfect for dancing and celebrations"
	case p.Energy > 0.6 && p.Valence <= 0.5:
		return "Intense, driving energy with darker emotional tones"
	case p.Energy <= 0.6 && p.Valence > 0.5:
		return "Relaxed and uplifting - great for unwinding"
	default:
		return "Contemplative and introspective - ideal for quiet moments"
	}
}
