package config

type WorkerKeyStruct struct {
	PersistEndedInterviewsQueue string
	PersistInterviewEventsQueue string
}

var WorkerKey = &WorkerKeyStruct{
	PersistEndedInterviewsQueue: "persist_ended_interviews_queue",
	PersistInterviewEventsQueue: "persist_interview_events_queue",
}
