package kinetic

import "fmt"

// DebugInfo returns info of world
func DebugInfo(w *World) string {
	contacts := len(w.contactManager.contacts)
	touching := 0
	points := 0

	for _, c := range w.contactManager.contacts {
		if c.touching {
			touching++
		}
		points += c.manifold.PointCount
	}

	awake := 0
	var ke float64
	for _, body := range w.bodies {
		if body.awake {
			awake++
		}
		if body.typ == Dynamic {
			ke += body.KineticEnergy()
		}
	}

	constraints := len(w.joints) + points*w.settings.VelocityIterations

	return fmt.Sprintf(`Bodies: %d (%d awake) - Islands: %d
Contacts: %d (%d touching) - Contact Points: %d
Joints: %d, Velocity Iterations: %d
Constraints x Iterations: %d
Proxies: %d, Tree Height: %d, Tree Quality: %.2f
TOI Events: %d, Steps: %d
KE: %e`, len(w.bodies), awake, w.islandCount,
		contacts, touching, points,
		len(w.joints), w.settings.VelocityIterations,
		constraints,
		w.ProxyCount(), w.TreeHeight(), w.TreeQuality(),
		w.toiCount, w.stepCount,
		ke)
}
