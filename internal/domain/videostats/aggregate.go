package videostats

// Aggregate counts events per type and side. A goal is also a shot.
func Aggregate(events []ManualEvent) MatchStats {
	var stats MatchStats
	for _, event := range events {
		switch event.Type {
		case EventPass:
			stats.Passes.add(event.Team)
		case EventShot:
			stats.Shots.add(event.Team)
		case EventGoal:
			stats.Goals.add(event.Team)
			stats.Shots.add(event.Team)
		case EventFoul:
			stats.Fouls.add(event.Team)
		default:
			stats.Others.add(event.Team)
		}
	}
	return stats
}
