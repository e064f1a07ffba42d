package engine

// Price стоимость занятия: hourlyRate за час, пропорционально фактической
// длительности, округление до ближайшей минорной единицы валюты.
// Считается один раз при создании брони и больше никогда не пересчитывается
func Price(hourlyRate int64, durationMinutes int) int64 {
	if hourlyRate <= 0 || durationMinutes <= 0 {
		return 0
	}
	total := hourlyRate * int64(durationMinutes)
	return (total + 30) / 60
}
