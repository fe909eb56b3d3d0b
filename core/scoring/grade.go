package scoring

// Grade is the letter score derived from the weighted percentage.
type Grade string

const (
	GradeS Grade = "S"
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"
)

// GradeFor maps a rounded percentage onto the grade ladder.
func GradeFor(percentage int) Grade {
	switch {
	case percentage >= 95:
		return GradeS
	case percentage >= 85:
		return GradeA
	case percentage >= 75:
		return GradeB
	case percentage >= 65:
		return GradeC
	case percentage >= 50:
		return GradeD
	}
	return GradeF
}
