package outbox

const workoutLoggedSchema = `{
  "type": "object",
  "title": "WorkoutLogged",
  "properties": {
    "workout_id": {"type": "string"},
    "tenant_id": {"type": "string"},
    "subject_id": {"type": "string"},
    "template": {"type": "string"},
    "movements": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "name": {"type": "string"},
          "reps": {"type": "integer"},
          "load_lb": {"type": "number"},
          "calories": {"type": "number"}
        },
        "required": ["name", "reps"],
        "additionalProperties": false
      }
    },
    "duration_sec": {"type": "number"},
    "round_count": {"type": "integer"},
    "splits_sec": {"type": "array", "items": {"type": "number"}},
    "performed_at": {"type": "string", "format": "date-time"},
    "source": {"type": "string"},
    "version": {"type": "string"}
  },
  "required": ["workout_id", "tenant_id", "subject_id", "movements", "duration_sec", "round_count", "performed_at", "source", "version"],
  "additionalProperties": false
}`

const workoutScoredSchema = `{
  "type": "object",
  "title": "WorkoutScored",
  "properties": {
    "workout_id": {"type": "string"},
    "tenant_id": {"type": "string"},
    "subject_id": {"type": "string"},
    "session_type": {"type": "string"},
    "total_work_ewu": {"type": "number"},
    "density_ewu_per_min": {"type": ["number", "null"]},
    "split_drift": {"type": ["number", "null"]},
    "split_spread": {"type": ["number", "null"]},
    "domain_scores": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "domain": {"type": "string"},
          "raw_value": {"type": ["number", "null"]},
          "score": {"type": ["number", "null"]},
          "sample_count": {"type": "integer"},
          "confidence": {"type": "string"}
        },
        "required": ["domain", "sample_count", "confidence"],
        "additionalProperties": false
      }
    },
    "scored_at": {"type": "string", "format": "date-time"},
    "version": {"type": "string"}
  },
  "required": ["workout_id", "tenant_id", "subject_id", "session_type", "total_work_ewu", "scored_at", "version"],
  "additionalProperties": false
}`
