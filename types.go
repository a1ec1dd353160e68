package vtask

import "github.com/Swind/go-vtask/core"

// Re-export commonly used types from core package for convenience.
// This allows users to import only the vtask package for most use cases.

// Task is a cooperatively scheduled unit of work and its own handle
type Task = core.Task

// Body is the function run by a task
type Body = core.Body

// Callable is a Body that returns a value
type Callable = core.Callable

type TaskID = core.TaskID

type TaskState = core.TaskState

// TaskPriority is advisory metadata; scheduling is strict FIFO
type TaskPriority = core.TaskPriority

// Outcome is the terminal result of a task
type Outcome = core.Outcome

// Future is an awaitable view of a task outcome
type Future = core.Future

type Builder = core.Builder

type Factory = core.Factory

// Executor starts one task per submission and waits for all of them on Close
type Executor = core.Executor

type ReentrantLock = core.ReentrantLock

type Monitor = core.Monitor

type TaskInfo = core.TaskInfo

type CarrierInfo = core.CarrierInfo

// Priority constants
const (
	TaskPriorityBestEffort   TaskPriority = core.TaskPriorityBestEffort
	TaskPriorityUserVisible  TaskPriority = core.TaskPriorityUserVisible
	TaskPriorityUserBlocking TaskPriority = core.TaskPriorityUserBlocking
)

// Blocking gate operations
var (
	Sleep          = core.Sleep
	Yield          = core.Yield
	WaitFor        = core.WaitFor
	BlockingIO     = core.BlockingIO
	CheckInterrupt = core.CheckInterrupt
	Interrupted    = core.Interrupted
	CurrentTask    = core.CurrentTask
	IsTask         = core.IsTask
)

var (
	NewReentrantLock = core.NewReentrantLock
	NewMonitor       = core.NewMonitor
)
