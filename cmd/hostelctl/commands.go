package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"hostelcore/internal/client"
)

func newRoomsCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rooms",
		Short: "Manage rooms",
	}

	create := &cobra.Command{
		Use:   "create ROOM_NUMBER CAPACITY",
		Short: "Create an empty room",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			capacity, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("capacity %q is not a number", args[1])
			}
			room, err := flags.client().CreateRoom(cmd.Context(), args[0], capacity)
			if err != nil {
				return err
			}
			return printJSON(cmd, room)
		},
	}

	var status string
	list := &cobra.Command{
		Use:   "list",
		Short: "List rooms with their residents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rooms, err := flags.client().ListRooms(cmd.Context(), status)
			if err != nil {
				return err
			}
			return printJSON(cmd, rooms)
		},
	}
	list.Flags().StringVar(&status, "status", "", "filter by occupancy: vacant, occupied or all")

	students := &cobra.Command{
		Use:   "students ROOM_NUMBER",
		Short: "Show the students living in a room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := flags.client().RoomStudents(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, out)
		},
	}

	generate := &cobra.Command{
		Use:   "generate",
		Short: "Replace all rooms with the standard building layout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := flags.client().GenerateRooms(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}

	cmd.AddCommand(create, list, students, generate)
	return cmd
}

func newStudentsCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "students",
		Short: "Manage students",
	}

	var reg client.Registration
	register := &cobra.Command{
		Use:   "register",
		Short: "Register a student and assign a room",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := flags.client().RegisterStudent(cmd.Context(), reg)
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}
	rf := register.Flags()
	rf.StringVar(&reg.Name, "name", "", "full name")
	rf.StringVar(&reg.RollNumber, "roll", "", "roll number")
	rf.StringVar(&reg.Branch, "branch", "", "branch")
	rf.IntVar(&reg.Year, "year", 0, "year of study (1-4)")
	rf.StringVar(&reg.Email, "email", "", "email address")
	rf.StringVar(&reg.PhoneNumber, "phone", "", "phone number")
	rf.StringVar(&reg.ParentMobileNumber, "parent-phone", "", "parent mobile number")
	rf.StringVar(&reg.Password, "password", "", "initial password")
	rf.StringVar(&reg.RoomNumber, "room", "", "explicit room number")

	var (
		upd                                              client.StudentUpdate
		name, roll, branch, email, phone, parent, roomNo string
		year                                             int
	)
	update := &cobra.Command{
		Use:   "update STUDENT_ID",
		Short: "Update a student profile; --room moves or (empty) unassigns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := cmd.Flags()
			for flag, dst := range map[string]struct {
				val string
				ptr **string
			}{
				"name":         {name, &upd.Name},
				"roll":         {roll, &upd.RollNumber},
				"branch":       {branch, &upd.Branch},
				"email":        {email, &upd.Email},
				"phone":        {phone, &upd.PhoneNumber},
				"parent-phone": {parent, &upd.ParentMobileNumber},
				"room":         {roomNo, &upd.RoomNumber},
			} {
				if f.Changed(flag) {
					v := dst.val
					*dst.ptr = &v
				}
			}
			if f.Changed("year") {
				upd.Year = &year
			}
			res, err := flags.client().UpdateStudent(cmd.Context(), args[0], upd)
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}
	uf := update.Flags()
	uf.StringVar(&name, "name", "", "full name")
	uf.StringVar(&roll, "roll", "", "roll number")
	uf.StringVar(&branch, "branch", "", "branch")
	uf.IntVar(&year, "year", 0, "year of study")
	uf.StringVar(&email, "email", "", "email address")
	uf.StringVar(&phone, "phone", "", "phone number")
	uf.StringVar(&parent, "parent-phone", "", "parent mobile number")
	uf.StringVar(&roomNo, "room", "", "room number")

	deactivate := &cobra.Command{
		Use:   "deactivate ROLL_NUMBER",
		Short: "Deactivate a student and free its bed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := flags.client().DeactivateStudent(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}

	var inactive bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List active (or inactive) students",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := flags.client().ListStudents(cmd.Context(), !inactive)
			if err != nil {
				return err
			}
			return printJSON(cmd, out)
		},
	}
	list.Flags().BoolVar(&inactive, "inactive", false, "list deactivated students")

	get := &cobra.Command{
		Use:   "get ROLL_NUMBER",
		Short: "Show a student by roll number",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			student, err := flags.client().Student(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, student)
		},
	}

	cmd.AddCommand(register, update, deactivate, list, get)
	return cmd
}

func newAllocateCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "allocate",
		Short: "Assign rooms to every active student without one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := flags.client().AllocateRooms(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}
}

func newMoveCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "move STUDENT_ID ROOM_NUMBER",
		Short: "Move a student into another room",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := flags.client().ChangeRoom(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}
}

func newExchangeCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "exchange STUDENT_ID STUDENT_ID",
		Short: "Swap the rooms of two students of the same year",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := flags.client().ExchangeRooms(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}
}

func newUnassignCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "unassign STUDENT_ID",
		Short: "Release a student's bed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := flags.client().UnassignStudent(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}
}

func newGenerateCmd(flags *globalFlags) *cobra.Command {
	var (
		count int
		async bool
	)
	cmd := &cobra.Command{
		Use:   "generate-students",
		Short: "Replace all students with a synthetic population allocated by year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := flags.client().GenerateStudents(cmd.Context(), count, async)
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}
	cmd.Flags().IntVar(&count, "count", 0, "number of students (server default when 0)")
	cmd.Flags().BoolVar(&async, "async", false, "run as a background job")

	job := &cobra.Command{
		Use:   "job JOB_ID",
		Short: "Show a background job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := flags.client().Job(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, j)
		},
	}
	cmd.AddCommand(job)
	return cmd
}

func newExportCmd(flags *globalFlags) *cobra.Command {
	var (
		formats string
		status  string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Queue a roster export",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var list []string
			for _, f := range strings.Split(formats, ",") {
				if f = strings.TrimSpace(f); f != "" {
					list = append(list, f)
				}
			}
			rec, err := flags.client().ExportRoster(cmd.Context(), list, status)
			if err != nil {
				return err
			}
			return printJSON(cmd, rec)
		},
	}
	cmd.Flags().StringVar(&formats, "formats", "", "comma separated formats: csv,xlsx (default both)")
	cmd.Flags().StringVar(&status, "status", "", "filter rooms by occupancy: vacant, occupied or all")

	get := &cobra.Command{
		Use:   "get EXPORT_ID",
		Short: "Show an export and its artifacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := flags.client().Export(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, rec)
		},
	}
	cmd.AddCommand(get)
	return cmd
}

func newStatsCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show occupancy statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats, err := flags.client().OccupancyStats(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, stats)
		},
	}
}
