package mcpserver

// MeasurementFormatContract describes the canonical measurement format
// that LLM consumers should follow when recording or reading entries.
const MeasurementFormatContract = `# Blood Pressure Measurement Contract

Every measurement stored in the diary follows this structure.

## Shape

` + "```" + `json
{
  "id": "3f1c9d2e-8a4b-4f6e-9c7d-0b1a2c3d4e5f",
  "systolic": 120,
  "diastolic": 80,
  "pulse": 70,
  "datetime": "2024-03-01T08:30"
}
` + "```" + `

## Rules

1. **` + "`" + `id` + "`" + ` is server-assigned.** Never supply one when recording; the diary
   generates a stable identifier and returns it.
2. **` + "`" + `datetime` + "`" + ` is minute precision**, format ` + "`" + `YYYY-MM-DDTHH:MM` + "`" + `,
   interpreted in the diary's configured local timezone. No seconds, no
   timezone suffix.
3. **Readings are integers** within plausible clinical ranges:
   - systolic: 50-250 mmHg
   - diastolic: 30-150 mmHg
   - pulse: 30-220 bpm
4. **Two measurements may share the same timestamp.** Identity comes from
   ` + "`" + `id` + "`" + `, never from the timestamp.
5. **Day queries** use ` + "`" + `YYYY-MM-DD` + "`" + ` and return newest first. **Range
   queries** are inclusive of both endpoint days and return oldest first.

## Example workflow

1. ` + "`" + `record_measurement(systolic=120, diastolic=80, pulse=70, datetime="2024-03-01T08:30")` + "`" + `
2. ` + "`" + `list_measurements(date="2024-03-01")` + "`" + ` to review the day
3. ` + "`" + `delete_measurement(id="...")` + "`" + ` to remove a mistaken entry
`
