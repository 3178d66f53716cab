package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/pdhealth/pdseed/internal/domain"
	"github.com/pdhealth/pdseed/internal/ports"
)

var ErrRosterExists = errors.New("roster file already exists")

const DefaultDoctorPassword = "Doctor123"

type RosterService struct {
	repo ports.RosterRepository
}

func NewRosterService(repo ports.RosterRepository) *RosterService {
	return &RosterService{repo: repo}
}

// Accounts returns the roster accounts. When no roster file exists yet the
// built-in doctor roster is used, and fromFile reports false.
func (s *RosterService) Accounts(ctx context.Context) (accounts []domain.Account, fromFile bool, err error) {
	if !s.repo.Exists() {
		return DefaultDoctorRoster(), false, nil
	}

	accounts, err = s.repo.List(ctx)
	if err != nil {
		return nil, true, fmt.Errorf("list roster accounts: %w", err)
	}
	for _, account := range accounts {
		if err := account.Validate(); err != nil {
			return nil, true, fmt.Errorf("roster %s: %w", s.repo.Path(), err)
		}
	}

	return accounts, true, nil
}

// Init writes the built-in roster to the roster file. An existing file is
// only replaced when force is set.
func (s *RosterService) Init(ctx context.Context, force bool) (string, error) {
	if s.repo.Exists() && !force {
		return s.repo.Path(), fmt.Errorf("%w: %s (use --force to overwrite)", ErrRosterExists, s.repo.Path())
	}

	if err := s.repo.Replace(ctx, DefaultDoctorRoster()); err != nil {
		return s.repo.Path(), fmt.Errorf("write roster: %w", err)
	}

	return s.repo.Path(), nil
}

// Add saves the account to the roster file. added is false when an entry
// with the same email was replaced.
func (s *RosterService) Add(ctx context.Context, account domain.Account) (added bool, err error) {
	_, err = s.repo.GetByEmail(ctx, account.Email)
	switch {
	case errors.Is(err, domain.ErrAccountNotFound):
		added = true
	case err != nil:
		return false, fmt.Errorf("look up roster account: %w", err)
	}

	if err := s.repo.Save(ctx, account); err != nil {
		return false, fmt.Errorf("save roster account: %w", err)
	}
	return added, nil
}

func (s *RosterService) Path() string {
	return s.repo.Path()
}

// DefaultDoctorRoster returns the ten sample doctors the seeding scripts
// have always worked with.
func DefaultDoctorRoster() []domain.Account {
	doctors := []domain.DoctorProfile{
		{FullName: "BS. Nguyễn Văn A", Specialization: "Nội khoa", MedicalLicenseID: "BS001234", ClinicAddress: "Bệnh viện Đa khoa Trung ương, TP.HCM", Bio: "Bác sĩ chuyên khoa nội với 15 năm kinh nghiệm"},
		{FullName: "BS. Trần Thị B", Specialization: "Nhi khoa", MedicalLicenseID: "BS001235", ClinicAddress: "Bệnh viện Nhi Đồng 1, TP.HCM", Bio: "Bác sĩ nhi khoa với 10 năm kinh nghiệm điều trị bệnh nhi"},
		{FullName: "BS. Lê Quang C", Specialization: "Tim mạch", MedicalLicenseID: "BS001236", ClinicAddress: "Bệnh viện Tim Tâm Đức, TP.HCM", Bio: "Chuyên gia tim mạch với 20 năm kinh nghiệm"},
		{FullName: "BS. Phạm Hoài D", Specialization: "Da liễu", MedicalLicenseID: "BS001237", ClinicAddress: "Bệnh viện Da liễu TP.HCM", Bio: "Bác sĩ da liễu chuyên điều trị mụn và các bệnh về da"},
		{FullName: "BS. Võ Thị E", Specialization: "Sản phụ khoa", MedicalLicenseID: "BS001238", ClinicAddress: "Bệnh viện Từ Dũ, TP.HCM", Bio: "Bác sĩ sản phụ khoa với 12 năm kinh nghiệm"},
		{FullName: "BS. Ngô Minh F", Specialization: "Ngoại khoa", MedicalLicenseID: "BS001239", ClinicAddress: "Bệnh viện Chợ Rẫy, TP.HCM", Bio: "Bác sĩ ngoại khoa tổng quát với 18 năm kinh nghiệm"},
		{FullName: "BS. Đoàn Tuấn G", Specialization: "Tai mũi họng", MedicalLicenseID: "BS001240", ClinicAddress: "Bệnh viện Tai Mũi Họng TP.HCM", Bio: "Chuyên khoa Tai Mũi Họng với 8 năm kinh nghiệm"},
		{FullName: "BS. Bùi Kim H", Specialization: "Mắt", MedicalLicenseID: "BS001241", ClinicAddress: "Bệnh viện Mắt TP.HCM", Bio: "Bác sĩ chuyên khoa mắt, chuyên điều trị cận thị và đục thủy tinh thể"},
		{FullName: "BS. Hoàng Dũng I", Specialization: "Thần kinh", MedicalLicenseID: "BS001242", ClinicAddress: "Bệnh viện 115, TP.HCM", Bio: "Bác sĩ thần kinh với 14 năm kinh nghiệm điều trị đột quỵ và bệnh Parkinson"},
		{FullName: "BS. Đinh Hân K", Specialization: "Răng hàm mặt", MedicalLicenseID: "BS001243", ClinicAddress: "Bệnh viện Răng Hàm Mặt TP.HCM", Bio: "Nha sĩ với 10 năm kinh nghiệm điều trị và thẩm mỹ răng"},
	}
	emails := []string{
		"bs.nguyenvana@pdhealth.com",
		"bs.tranthib@pdhealth.com",
		"bs.lequangc@pdhealth.com",
		"bs.phamhoaid@pdhealth.com",
		"bs.vothie@pdhealth.com",
		"bs.ngominhf@pdhealth.com",
		"bs.doantuang@pdhealth.com",
		"bs.buikimh@pdhealth.com",
		"bs.hoangdungi@pdhealth.com",
		"bs.dinhhank@pdhealth.com",
	}

	accounts := make([]domain.Account, len(doctors))
	for i := range doctors {
		profile := doctors[i]
		accounts[i] = domain.Account{
			Email:    emails[i],
			Password: DefaultDoctorPassword,
			Name:     profile.FullName,
			Profile:  &profile,
		}
	}

	return accounts
}
