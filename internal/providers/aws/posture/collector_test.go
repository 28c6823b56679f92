package posture

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	ec2svc "github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	elbv2svc "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	elbv2types "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2/types"
	iamsvc "github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
	rdssvc "github.com/aws/aws-sdk-go-v2/service/rds"
	rdstypes "github.com/aws/aws-sdk-go-v2/service/rds/types"
	s3svc "github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/secgate-io/secgate/internal/models"
	"github.com/secgate-io/secgate/internal/providers/aws/common"
)

// fakeProvider satisfies common.AWSClientProvider without touching real
// credentials.
type fakeProvider struct{}

func (fakeProvider) LoadProfile(context.Context, string, string) (*common.ProfileConfig, error) {
	return &common.ProfileConfig{ProfileName: "default", AccountID: "123456789012", Region: "eu-west-1"}, nil
}

func (fakeProvider) ConfigForRegion(cfg *common.ProfileConfig, region string) aws.Config {
	c := cfg.Config
	c.Region = region
	return c
}

type fakeS3 struct {
	buckets       []string
	publicBuckets map[string]bool
	encrypted     map[string]bool
	listErr       error
}

func (f *fakeS3) ListBuckets(context.Context, *s3svc.ListBucketsInput, ...func(*s3svc.Options)) (*s3svc.ListBucketsOutput, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := &s3svc.ListBucketsOutput{}
	for _, name := range f.buckets {
		out.Buckets = append(out.Buckets, s3types.Bucket{Name: aws.String(name)})
	}
	return out, nil
}

func (f *fakeS3) GetBucketPolicyStatus(_ context.Context, in *s3svc.GetBucketPolicyStatusInput, _ ...func(*s3svc.Options)) (*s3svc.GetBucketPolicyStatusOutput, error) {
	if !f.publicBuckets[aws.ToString(in.Bucket)] {
		return nil, errors.New("NoSuchBucketPolicy")
	}
	return &s3svc.GetBucketPolicyStatusOutput{
		PolicyStatus: &s3types.PolicyStatus{IsPublic: aws.Bool(true)},
	}, nil
}

func (f *fakeS3) GetBucketEncryption(_ context.Context, in *s3svc.GetBucketEncryptionInput, _ ...func(*s3svc.Options)) (*s3svc.GetBucketEncryptionOutput, error) {
	if !f.encrypted[aws.ToString(in.Bucket)] {
		return nil, errors.New("ServerSideEncryptionConfigurationNotFoundError")
	}
	return &s3svc.GetBucketEncryptionOutput{}, nil
}

type fakeEC2 struct {
	groups []ec2types.SecurityGroup
}

func (f *fakeEC2) DescribeSecurityGroups(context.Context, *ec2svc.DescribeSecurityGroupsInput, ...func(*ec2svc.Options)) (*ec2svc.DescribeSecurityGroupsOutput, error) {
	return &ec2svc.DescribeSecurityGroupsOutput{SecurityGroups: f.groups}, nil
}

type fakeIAM struct {
	users       []string
	mfa         map[string]bool
	consoleUser map[string]bool
}

func (f *fakeIAM) ListUsers(context.Context, *iamsvc.ListUsersInput, ...func(*iamsvc.Options)) (*iamsvc.ListUsersOutput, error) {
	out := &iamsvc.ListUsersOutput{}
	for _, u := range f.users {
		out.Users = append(out.Users, iamtypes.User{UserName: aws.String(u)})
	}
	return out, nil
}

func (f *fakeIAM) ListMFADevices(_ context.Context, in *iamsvc.ListMFADevicesInput, _ ...func(*iamsvc.Options)) (*iamsvc.ListMFADevicesOutput, error) {
	out := &iamsvc.ListMFADevicesOutput{}
	if f.mfa[aws.ToString(in.UserName)] {
		out.MFADevices = []iamtypes.MFADevice{{SerialNumber: aws.String("arn:aws:iam::mfa/1")}}
	}
	return out, nil
}

func (f *fakeIAM) GetLoginProfile(_ context.Context, in *iamsvc.GetLoginProfileInput, _ ...func(*iamsvc.Options)) (*iamsvc.GetLoginProfileOutput, error) {
	if !f.consoleUser[aws.ToString(in.UserName)] {
		return nil, errors.New("NoSuchEntity")
	}
	return &iamsvc.GetLoginProfileOutput{}, nil
}

type fakeRDS struct {
	instances []rdstypes.DBInstance
}

func (f *fakeRDS) DescribeDBInstances(context.Context, *rdssvc.DescribeDBInstancesInput, ...func(*rdssvc.Options)) (*rdssvc.DescribeDBInstancesOutput, error) {
	return &rdssvc.DescribeDBInstancesOutput{DBInstances: f.instances}, nil
}

type fakeELB struct {
	balancers []elbv2types.LoadBalancer
	listeners map[string][]elbv2types.Listener
}

func (f *fakeELB) DescribeLoadBalancers(context.Context, *elbv2svc.DescribeLoadBalancersInput, ...func(*elbv2svc.Options)) (*elbv2svc.DescribeLoadBalancersOutput, error) {
	return &elbv2svc.DescribeLoadBalancersOutput{LoadBalancers: f.balancers}, nil
}

func (f *fakeELB) DescribeListeners(_ context.Context, in *elbv2svc.DescribeListenersInput, _ ...func(*elbv2svc.Options)) (*elbv2svc.DescribeListenersOutput, error) {
	return &elbv2svc.DescribeListenersOutput{Listeners: f.listeners[aws.ToString(in.LoadBalancerArn)]}, nil
}

func fakeFactoryFor(clients *postureClients) postureClientFactory {
	return func(aws.Config) *postureClients { return clients }
}

func emptyClients() *postureClients {
	return &postureClients{
		S3:    &fakeS3{},
		EC2:   &fakeEC2{},
		IAM:   &fakeIAM{},
		RDS:   &fakeRDS{},
		ELBv2: &fakeELB{},
	}
}

func testProfile() *common.ProfileConfig {
	return &common.ProfileConfig{ProfileName: "staging", AccountID: "123456789012", Region: "eu-west-1"}
}

// findContext returns the collected context with the given name.
func findContext(t *testing.T, contexts []*models.EvalContext, name string) *models.EvalContext {
	t.Helper()
	for _, ec := range contexts {
		if ec.Name == name {
			return ec
		}
	}
	t.Fatalf("no context named %q in %d collected contexts", name, len(contexts))
	return nil
}

func TestCollectS3Contexts(t *testing.T) {
	clients := emptyClients()
	clients.S3 = &fakeS3{
		buckets:       []string{"open-data", "locked-down"},
		publicBuckets: map[string]bool{"open-data": true},
		encrypted:     map[string]bool{"locked-down": true},
	}
	collector := NewDefaultContextCollectorWithFactory(fakeFactoryFor(clients))

	contexts, err := collector.Collect(context.Background(), testProfile(), fakeProvider{})
	if err != nil {
		t.Fatalf("Collect error: %v", err)
	}

	open := findContext(t, contexts, "s3://open-data")
	if open.Resource["public"] != true || open.Resource["encryption_enabled"] != false {
		t.Errorf("open-data resource = %+v", open.Resource)
	}
	if open.Environment["account_id"] != "123456789012" || open.Environment["provider"] != "aws" {
		t.Errorf("environment = %+v", open.Environment)
	}

	locked := findContext(t, contexts, "s3://locked-down")
	if locked.Resource["public"] != false || locked.Resource["encryption_enabled"] != true {
		t.Errorf("locked-down resource = %+v", locked.Resource)
	}
}

func TestCollectSecurityGroupContexts(t *testing.T) {
	clients := emptyClients()
	clients.EC2 = &fakeEC2{groups: []ec2types.SecurityGroup{
		{
			GroupId:   aws.String("sg-open"),
			GroupName: aws.String("bastion"),
			IpPermissions: []ec2types.IpPermission{
				{FromPort: aws.Int32(22), IpRanges: []ec2types.IpRange{{CidrIp: aws.String("0.0.0.0/0")}}},
				{FromPort: aws.Int32(443), Ipv6Ranges: []ec2types.Ipv6Range{{CidrIpv6: aws.String("::/0")}}},
			},
		},
		{
			GroupId:   aws.String("sg-internal"),
			GroupName: aws.String("app"),
			IpPermissions: []ec2types.IpPermission{
				{FromPort: aws.Int32(8080), IpRanges: []ec2types.IpRange{{CidrIp: aws.String("10.0.0.0/8")}}},
			},
		},
	}}
	collector := NewDefaultContextCollectorWithFactory(fakeFactoryFor(clients))

	contexts, err := collector.Collect(context.Background(), testProfile(), fakeProvider{})
	if err != nil {
		t.Fatalf("Collect error: %v", err)
	}

	open := findContext(t, contexts, "sg/sg-open")
	if open.Resource["open_to_world"] != true {
		t.Errorf("sg-open resource = %+v", open.Resource)
	}
	ports, _ := open.Resource["open_ports"].([]any)
	if len(ports) != 2 {
		t.Errorf("open_ports = %v, want ports 22 and 443", ports)
	}

	internal := findContext(t, contexts, "sg/sg-internal")
	if internal.Resource["open_to_world"] != false {
		t.Errorf("sg-internal resource = %+v", internal.Resource)
	}
}

func TestCollectIAMContexts(t *testing.T) {
	clients := emptyClients()
	clients.IAM = &fakeIAM{
		users:       []string{"alice", "ci-bot"},
		mfa:         map[string]bool{"alice": true},
		consoleUser: map[string]bool{"alice": true},
	}
	collector := NewDefaultContextCollectorWithFactory(fakeFactoryFor(clients))

	contexts, err := collector.Collect(context.Background(), testProfile(), fakeProvider{})
	if err != nil {
		t.Fatalf("Collect error: %v", err)
	}

	alice := findContext(t, contexts, "iam/alice")
	if alice.Resource["mfa_enabled"] != true || alice.Resource["has_login_profile"] != true {
		t.Errorf("alice resource = %+v", alice.Resource)
	}
	bot := findContext(t, contexts, "iam/ci-bot")
	if bot.Resource["mfa_enabled"] != false || bot.Resource["has_login_profile"] != false {
		t.Errorf("ci-bot resource = %+v", bot.Resource)
	}
}

func TestCollectRDSAndELBContexts(t *testing.T) {
	clients := emptyClients()
	clients.RDS = &fakeRDS{instances: []rdstypes.DBInstance{
		{
			DBInstanceIdentifier: aws.String("orders-db"),
			Engine:               aws.String("postgres"),
			StorageEncrypted:     aws.Bool(false),
			PubliclyAccessible:   aws.Bool(true),
			MultiAZ:              aws.Bool(false),
		},
	}}
	clients.ELBv2 = &fakeELB{
		balancers: []elbv2types.LoadBalancer{
			{
				LoadBalancerName: aws.String("edge"),
				LoadBalancerArn:  aws.String("arn:edge"),
				Scheme:           elbv2types.LoadBalancerSchemeEnumInternetFacing,
			},
		},
		listeners: map[string][]elbv2types.Listener{
			"arn:edge": {
				{Protocol: elbv2types.ProtocolEnumHttps},
				{Protocol: elbv2types.ProtocolEnumHttp},
			},
		},
	}
	collector := NewDefaultContextCollectorWithFactory(fakeFactoryFor(clients))

	contexts, err := collector.Collect(context.Background(), testProfile(), fakeProvider{})
	if err != nil {
		t.Fatalf("Collect error: %v", err)
	}

	db := findContext(t, contexts, "rds/orders-db")
	if db.Resource["storage_encrypted"] != false || db.Resource["publicly_accessible"] != true {
		t.Errorf("orders-db resource = %+v", db.Resource)
	}

	lb := findContext(t, contexts, "elb/edge")
	if lb.Resource["scheme"] != "internet-facing" || lb.Resource["https_only"] != false {
		t.Errorf("edge resource = %+v", lb.Resource)
	}
}

// A failing service contributes nothing but must not abort the rest of the
// collection.
func TestCollectSkipsFailingService(t *testing.T) {
	clients := emptyClients()
	clients.S3 = &fakeS3{listErr: errors.New("access denied")}
	clients.IAM = &fakeIAM{users: []string{"alice"}}
	collector := NewDefaultContextCollectorWithFactory(fakeFactoryFor(clients))

	contexts, err := collector.Collect(context.Background(), testProfile(), fakeProvider{})
	if err != nil {
		t.Fatalf("Collect error: %v", err)
	}
	findContext(t, contexts, "iam/alice")
	for _, ec := range contexts {
		if ec.Resource["type"] == "s3_bucket" {
			t.Errorf("unexpected S3 context %q after list failure", ec.Name)
		}
	}
}
