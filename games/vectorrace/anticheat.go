package vectorrace

import "math"

type validationResult int

const (
	validationValid validationResult = iota
	validationRubberband
	validationExplode
	validationKick
	validationIgnoreInput
)

// validateMovement checks a player's displacement since the last tick
// against the fastest physically possible move, flagging repeat offenders
// for a kick.
func validateMovement(p *Player, dt float64) validationResult {
	actualDistance := distance(p.LastValidX, p.LastValidY, p.X, p.Y)
	maxPossibleDistance := MaxSpeed * dt * SpeedTolerance

	if actualDistance > maxPossibleDistance {
		p.Violations++
		if p.Violations > MaxViolations {
			return validationKick
		}
		return validationRubberband
	}

	if math.Abs(p.Speed) > MaxSpeed*SpeedTolerance {
		p.Violations++
		p.Speed = math.Copysign(MaxSpeed, p.Speed)
	}

	if p.Violations > 0 && actualDistance <= maxPossibleDistance {
		p.Violations = 0
	}

	return validationValid
}

// validatePosition flags a player who has drifted impossibly far from the
// road, independent of how they got there.
func validatePosition(p *Player) validationResult {
	roadCenter := GetRoadCurve(p.Y)
	distFromRoad := math.Abs(p.X - roadCenter)
	maxAllowedDist := RoadWidth*0.5 + RoadWidth*ExplosionTolerance*1.5

	if distFromRoad > maxAllowedDist {
		return validationExplode
	}
	return validationValid
}

// validateInputRate enforces MaxInputsPerTick, dropping excess input frames
// instead of letting a flood overwrite CurrentInput mid-tick.
func validateInputRate(p *Player) validationResult {
	p.InputsThisTick++
	if p.InputsThisTick > MaxInputsPerTick {
		return validationIgnoreInput
	}
	return validationValid
}

func applyValidation(p *Player, result validationResult) {
	switch result {
	case validationRubberband:
		p.X = p.LastValidX
		p.Y = p.LastValidY
		p.Violations++
	case validationExplode:
		if !p.Exploded {
			p.Exploded = true
			p.Rating = 0
			p.ExplodedAt = nowFunc()
		}
	case validationValid:
		p.LastValidX = p.X
		p.LastValidY = p.Y
		p.Violations = 0
	}
}

func distance(x1, y1, x2, y2 float64) float64 {
	dx := x2 - x1
	dy := y2 - y1
	return math.Sqrt(dx*dx + dy*dy)
}
