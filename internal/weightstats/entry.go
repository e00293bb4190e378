package weightstats

// WeightEntry is a single user-recorded weight measurement.
// Date is the canonical YYYY-MM-DD day and acts as the primary key:
// recording another measurement for the same day overwrites the previous one.
//
// ChangeKg, ChangePercent and DailyChange are derived from the chronological
// series and are recomputed on every read - values coming from storage or
// import are never trusted.
type WeightEntry struct {
	Date          string  `json:"date"`
	WeekDay       string  `json:"weekDay"`
	Weight        float64 `json:"weight"`
	ChangePercent float64 `json:"changePercent"`
	ChangeKg      float64 `json:"changeKg"`
	DailyChange   float64 `json:"dailyChange"`
	// RecordedAt optionally captures the time of day (local, YYYY-MM-DDTHH:mm[:ss]).
	// Empty for legacy / imported entries.
	RecordedAt string `json:"recordedAt,omitempty"`
}

// Goal is the single active target configuration. TotalDuration and TotalKg
// are denormalized - use DurationDays and TotalKilos when consuming, since
// start/end fields can be patched independently at any time.
type Goal struct {
	StartDate     string  `json:"startDate"`
	StartWeight   float64 `json:"startWeight"`
	EndDate       string  `json:"endDate"`
	EndWeight     float64 `json:"endWeight"`
	TotalDuration int     `json:"totalDuration"`
	TotalKg       float64 `json:"totalKg"`
	// Height in centimeters, used only for BMI.
	Height float64 `json:"height"`
}

// TotalKilos returns the kilos to lose, recomputed from the start/end weights.
func (g Goal) TotalKilos() float64 {
	return g.StartWeight - g.EndWeight
}

// DurationDays returns the goal duration, recomputed from the start/end dates.
func (g Goal) DurationDays() int {
	start, okStart := ParseFlexible(g.StartDate, zeroTime)
	end, okEnd := ParseFlexible(g.EndDate, zeroTime)
	if !okStart || !okEnd {
		return g.TotalDuration
	}
	return DaysBetween(start, end)
}

// Statistics is an ephemeral snapshot fully recomputed from (entries, goal).
type Statistics struct {
	Current     CurrentStats     `json:"current"`
	Progress    ProgressStats    `json:"progress"`
	Averages    AverageStats     `json:"averages"`
	Target      TargetStats      `json:"target"`
	Performance PerformanceStats `json:"performance"`
}

type CurrentStats struct {
	Date        string  `json:"date"`
	Weight      float64 `json:"weight"`
	BMI         float64 `json:"bmi"`
	BMICategory string  `json:"bmiCategory"`
}

type ProgressStats struct {
	TotalLost          float64 `json:"totalLost"`
	PercentageComplete float64 `json:"percentageComplete"`
	DaysElapsed        int     `json:"daysElapsed"`
	DaysRemaining      int     `json:"daysRemaining"`
	Remaining          float64 `json:"remaining"`
}

type AverageStats struct {
	DailyLoss   float64 `json:"dailyLoss"`
	WeeklyLoss  float64 `json:"weeklyLoss"`
	MonthlyLoss float64 `json:"monthlyLoss"`
}

type TargetStats struct {
	RequiredDailyLoss  float64 `json:"requiredDailyLoss"`
	RequiredWeeklyLoss float64 `json:"requiredWeeklyLoss"`
	ProjectedEndDate   string  `json:"projectedEndDate"`
	OnTrack            bool    `json:"onTrack"`
	DaysAheadBehind    int     `json:"daysAheadBehind"`
}

type PerformanceStats struct {
	BestDay *BestDay `json:"bestDay"`
	// BestWeek buckets are rolling (a new bucket starts when the gap from the
	// bucket start reaches 7 days), not Sun-Sat calendar weeks.
	BestWeek *BestWeek `json:"bestWeek"`
	// LongestStreak counts consecutive entries with strictly decreasing
	// weight. The calendar-day logging streak lives in EntryStreak.
	LongestStreak int `json:"longestStreak"`
}

type BestDay struct {
	Date        string  `json:"date"`
	DailyChange float64 `json:"dailyChange"`
}

type BestWeek struct {
	StartDate string  `json:"startDate"`
	EndDate   string  `json:"endDate"`
	TotalLoss float64 `json:"totalLoss"`
}
